// internal/config/config.go
//
// 執行期設定：以 viper 讀取設定檔（可省略）與 POINTSALE_ 前綴的環境變數。
// 設定檔搜尋順序：明確指定的路徑 → ./pointsale.* → $HOME/.pointsale/pointsale.*
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config 為服務啟動所需的設定。
type Config struct {
	DataDir string     `mapstructure:"data_dir"`
	Listen  string     `mapstructure:"listen"`
	Log     LogConfig  `mapstructure:"log"`
	CORS    CORSConfig `mapstructure:"cors"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Defaults 回傳未設定任何值時的設定。
func Defaults() Config {
	return Config{
		DataDir: "data",
		Listen:  "127.0.0.1:8080",
		Log:     LogConfig{Level: "info"},
		CORS:    CORSConfig{AllowedOrigins: []string{"*"}},
	}
}

// Load 讀取設定。path 為空時依預設位置搜尋；找不到設定檔不是錯誤。
func Load(path string) (Config, error) {
	v := viper.New()
	def := Defaults()
	v.SetDefault("data_dir", def.DataDir)
	v.SetDefault("listen", def.Listen)
	v.SetDefault("log.level", def.Log.Level)
	v.SetDefault("log.development", def.Log.Development)
	v.SetDefault("cors.allowed_origins", def.CORS.AllowedOrigins)

	v.SetEnvPrefix("POINTSALE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("pointsale")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.pointsale")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate 檢查必要欄位。
func (c Config) Validate() error {
	if strings.TrimSpace(c.DataDir) == "" {
		return errors.New("config: data_dir is required")
	}
	if strings.TrimSpace(c.Listen) == "" {
		return errors.New("config: listen is required")
	}
	return nil
}
