package deviceio

import (
	"strings"

	"github.com/spf13/viper"

	"github.com/twojstaryzdomu/asfs/internal/asfserr"
)

// MountConfig holds ASFS's mount-option set, loaded the way volume
// mount options are loaded: defaults, then config file, then
// environment overrides. None of these are on-disk fields.
type MountConfig struct {
	Mode         string `mapstructure:"mode"`
	SetUID       int    `mapstructure:"setuid"`
	SetGID       int    `mapstructure:"setgid"`
	Prefix       string `mapstructure:"prefix"`
	Volume       string `mapstructure:"volume"`
	LowercaseVol bool   `mapstructure:"lowercasevol"`
	IOCharset    string `mapstructure:"iocharset"`
	Codepage     string `mapstructure:"codepage"`
	ReadOnly     bool   `mapstructure:"readonly"`
}

// LoadMountConfig reads mount options from defaults, then an optional
// config file, then ASFS_-prefixed environment overrides, unmarshalled
// into a typed struct.
func LoadMountConfig(configPath string) (*MountConfig, error) {
	v := viper.New()
	v.SetDefault("mode", "0644")
	v.SetDefault("setuid", -1)
	v.SetDefault("setgid", -1)
	v.SetDefault("prefix", "")
	v.SetDefault("volume", "")
	v.SetDefault("lowercasevol", false)
	v.SetDefault("iocharset", "")
	v.SetDefault("codepage", "")
	v.SetDefault("readonly", false)

	v.SetEnvPrefix("ASFS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, asfserr.New(asfserr.Invalid, "deviceio.LoadMountConfig", err)
		}
	}

	var cfg MountConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, asfserr.New(asfserr.Invalid, "deviceio.LoadMountConfig", err)
	}
	return &cfg, nil
}
