package config

import (
	"log"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Shop     ShopConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	Schema   string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type AuthConfig struct {
	JWTSecret         string
	AdminPasswordHash string // bcrypt hash of the shared admin password
	TokenExpiry       int    // in minutes
}

type ShopConfig struct {
	Name        string
	Currency    string
	DeliveryFee float64
	AdminIDs    []int64
}

func Load() *Config {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_ENV", "development")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SCHEMA", "public")
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("AUTH_TOKEN_EXPIRY", 60)
	viper.SetDefault("SHOP_NAME", "Timeless Store")
	viper.SetDefault("SHOP_CURRENCY", "RUB")
	viper.SetDefault("SHOP_DELIVERY_FEE", 200)

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Warning: Could not read config file: %v", err)
	}

	admins := make([]int64, 0)
	for _, id := range viper.GetIntSlice("SHOP_ADMIN_IDS") {
		admins = append(admins, int64(id))
	}

	return &Config{
		Server: ServerConfig{
			Port: viper.GetString("SERVER_PORT"),
			Env:  viper.GetString("SERVER_ENV"),
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			Database: viper.GetString("DB_DATABASE"),
			Schema:   viper.GetString("DB_SCHEMA"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		Auth: AuthConfig{
			JWTSecret:         viper.GetString("AUTH_JWT_SECRET"),
			AdminPasswordHash: viper.GetString("AUTH_ADMIN_PASSWORD_HASH"),
			TokenExpiry:       viper.GetInt("AUTH_TOKEN_EXPIRY"),
		},
		Shop: ShopConfig{
			Name:        viper.GetString("SHOP_NAME"),
			Currency:    viper.GetString("SHOP_CURRENCY"),
			DeliveryFee: viper.GetFloat64("SHOP_DELIVERY_FEE"),
			AdminIDs:    admins,
		},
	}
}
