package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/watchlock/server/internal/app"
)

type configVar[T any] struct {
	envKey       string
	flagKey      string
	defaultValue T
}

var (
	secret = configVar[string]{
		envKey:       "SERVER_SECRET",
		flagKey:      "secret",
		defaultValue: "",
	}
	host = configVar[string]{
		envKey:       "SERVER_HOST",
		flagKey:      "host",
		defaultValue: "0.0.0.0",
	}
	port = configVar[int]{
		envKey:       "SERVER_PORT",
		flagKey:      "port",
		defaultValue: 8080,
	}
	logLevel = configVar[string]{
		envKey:       "SERVER_LOG_LEVEL",
		flagKey:      "log-level",
		defaultValue: "INFO",
	}
	membersLimit = configVar[int]{
		envKey:       "SERVER_MEMBERS_LIMIT",
		flagKey:      "members-limit",
		defaultValue: 9,
	}
	roomRetention = configVar[time.Duration]{
		envKey:       "SERVER_ROOM_RETENTION",
		flagKey:      "room-retention",
		defaultValue: 14 * 24 * time.Hour,
	}
	redisHost = configVar[string]{
		envKey:       "REDIS_HOST",
		flagKey:      "redis-host",
		defaultValue: "localhost",
	}
	redisPort = configVar[int]{
		envKey:       "REDIS_PORT",
		flagKey:      "redis-port",
		defaultValue: 6379,
	}
	redisPassword = configVar[string]{
		envKey:       "REDIS_PASSWORD",
		flagKey:      "redis-password",
		defaultValue: "",
	}
	assistantKeys = configVar[string]{
		envKey:       "ASSISTANT_API_KEYS",
		flagKey:      "assistant-keys",
		defaultValue: "",
	}
	assistantBaseURL = configVar[string]{
		envKey:       "ASSISTANT_BASE_URL",
		flagKey:      "assistant-base-url",
		defaultValue: "https://generativelanguage.googleapis.com/v1beta",
	}
	assistantModel = configVar[string]{
		envKey:       "ASSISTANT_MODEL",
		flagKey:      "assistant-model",
		defaultValue: "gemini-2.0-flash",
	}
)

func loadAppConfig() *app.AppConfig {
	pflag.String(secret.flagKey, secret.defaultValue, "Server secret for rejoin tokens")
	pflag.String(host.flagKey, host.defaultValue, "Server host")
	pflag.Int(port.flagKey, port.defaultValue, "Server port")
	pflag.String(logLevel.flagKey, logLevel.defaultValue, "Logging level")
	pflag.Int(membersLimit.flagKey, membersLimit.defaultValue, "Maximum number of participants in a room")
	pflag.Duration(roomRetention.flagKey, roomRetention.defaultValue, "TTL on room records")
	pflag.String(redisHost.flagKey, redisHost.defaultValue, "Redis host")
	pflag.Int(redisPort.flagKey, redisPort.defaultValue, "Redis port")
	pflag.String(redisPassword.flagKey, redisPassword.defaultValue, "Redis password")
	pflag.String(assistantKeys.flagKey, assistantKeys.defaultValue, "Comma-separated assistant API keys")
	pflag.String(assistantBaseURL.flagKey, assistantBaseURL.defaultValue, "Assistant API base URL")
	pflag.String(assistantModel.flagKey, assistantModel.defaultValue, "Assistant model name")
	pflag.Parse()

	viper.BindPFlags(pflag.CommandLine)

	viper.BindEnv(secret.flagKey, secret.envKey)
	viper.BindEnv(host.flagKey, host.envKey)
	viper.BindEnv(port.flagKey, port.envKey)
	viper.BindEnv(logLevel.flagKey, logLevel.envKey)
	viper.BindEnv(membersLimit.flagKey, membersLimit.envKey)
	viper.BindEnv(roomRetention.flagKey, roomRetention.envKey)
	viper.BindEnv(redisHost.flagKey, redisHost.envKey)
	viper.BindEnv(redisPort.flagKey, redisPort.envKey)
	viper.BindEnv(redisPassword.flagKey, redisPassword.envKey)
	viper.BindEnv(assistantKeys.flagKey, assistantKeys.envKey)
	viper.BindEnv(assistantBaseURL.flagKey, assistantBaseURL.envKey)
	viper.BindEnv(assistantModel.flagKey, assistantModel.envKey)

	viper.SetDefault(secret.flagKey, secret.defaultValue)
	viper.SetDefault(host.flagKey, host.defaultValue)
	viper.SetDefault(port.flagKey, port.defaultValue)
	viper.SetDefault(logLevel.flagKey, logLevel.defaultValue)
	viper.SetDefault(membersLimit.flagKey, membersLimit.defaultValue)
	viper.SetDefault(roomRetention.flagKey, roomRetention.defaultValue)
	viper.SetDefault(redisHost.flagKey, redisHost.defaultValue)
	viper.SetDefault(redisPort.flagKey, redisPort.defaultValue)
	viper.SetDefault(redisPassword.flagKey, redisPassword.defaultValue)
	viper.SetDefault(assistantKeys.flagKey, assistantKeys.defaultValue)
	viper.SetDefault(assistantBaseURL.flagKey, assistantBaseURL.defaultValue)
	viper.SetDefault(assistantModel.flagKey, assistantModel.defaultValue)

	return &app.AppConfig{
		Secret:           viper.GetString(secret.flagKey),
		Host:             viper.GetString(host.flagKey),
		Port:             viper.GetInt(port.flagKey),
		LogLevel:         viper.GetString(logLevel.flagKey),
		MembersLimit:     viper.GetInt(membersLimit.flagKey),
		RoomRetention:    viper.GetDuration(roomRetention.flagKey),
		RedisHost:        viper.GetString(redisHost.flagKey),
		RedisPort:        viper.GetInt(redisPort.flagKey),
		RedisPassword:    viper.GetString(redisPassword.flagKey),
		AssistantKeys:    viper.GetString(assistantKeys.flagKey),
		AssistantBaseURL: viper.GetString(assistantBaseURL.flagKey),
		AssistantModel:   viper.GetString(assistantModel.flagKey),
	}
}

func main() {
	ctx := context.Background()

	if err := godotenv.Load(); err == nil {
		fmt.Println("loaded .env file")
	}

	appConfig := loadAppConfig()
	if err := appConfig.Validate(); err != nil {
		log.Fatal(err)
	}

	jsonConfig, _ := json.MarshalIndent(appConfig, "", "  ")
	fmt.Printf("starting app with config: %s\n", jsonConfig)

	log.Fatal(app.Run(ctx, appConfig))
}
