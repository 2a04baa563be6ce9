package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// EnvConfigFile overrides the config file search with an explicit path.
const EnvConfigFile = "CONFIG_FILE"

// Load reads {dir}/{name}.yaml, also searching "." and "./config". A missing
// file is not an error. Every key can be overridden from the environment
// with dots replaced by underscores, so server.port reads SERVER_PORT.
func Load(dir, name string) (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	if file := os.Getenv(EnvConfigFile); file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(name)
		for _, p := range []string{dir, ".", "./config"} {
			v.AddConfigPath(p)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	err := v.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	switch {
	case err == nil, errors.As(err, &notFound):
		return v, nil
	default:
		return nil, fmt.Errorf("read config %s: %w", name, err)
	}
}

func SetDefaults(v *viper.Viper, defaults map[string]any) {
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
}

// BindEnvs adds explicit environment names on top of the automatic ones.
func BindEnvs(v *viper.Viper, bindings map[string]string) error {
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("bind %s to %s: %w", key, env, err)
		}
	}
	return nil
}

// Decode unmarshals the merged file, env and default values into T.
func Decode[T any](v *viper.Viper) (*T, error) {
	var out T
	if err := v.Unmarshal(&out); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &out, nil
}
