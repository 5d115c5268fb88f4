/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package log

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/acronis/go-kvlru/config"
)

type testAppConfig struct {
	Log *Config `mapstructure:"log" json:"log" yaml:"log"`
}

func TestConfig(t *testing.T) {
	tests := []struct {
		name        string
		cfgDataType config.DataType
		cfgData     string
		expectedCfg func() *Config
	}{
		{
			name:        "yaml config",
			cfgDataType: config.DataTypeYAML,
			cfgData: `
log:
  level: debug
  format: text
  output: file
  nocolor: true
  file:
    path: /var/log/kvlru.log
    rotation:
      compress: true
      maxSize: 20M
      maxBackups: 3
      maxAgeDays: 7
  addCaller: true
  error:
    noVerbose: true
`,
			expectedCfg: func() *Config {
				cfg := NewDefaultConfig()
				cfg.Level = LevelDebug
				cfg.Format = FormatText
				cfg.Output = OutputFile
				cfg.NoColor = true
				cfg.File.Path = "/var/log/kvlru.log"
				cfg.File.Rotation.Compress = true
				cfg.File.Rotation.MaxSize = 20 * 1024 * 1024
				cfg.File.Rotation.MaxBackups = 3
				cfg.File.Rotation.MaxAgeDays = 7
				cfg.AddCaller = true
				cfg.Error.NoVerbose = true
				return cfg
			},
		},
		{
			name:        "json config",
			cfgDataType: config.DataTypeJSON,
			cfgData: `
{
	"log": {
		"level": "warn",
		"output": "stderr",
		"error": {"verboseSuffix": "_details"}
	}
}`,
			expectedCfg: func() *Config {
				cfg := NewDefaultConfig()
				cfg.Level = LevelWarn
				cfg.Output = OutputStderr
				cfg.Error.VerboseSuffix = "_details"
				return cfg
			},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			// config.Loader
			appCfg := testAppConfig{Log: NewDefaultConfig()}
			cfgLoader := config.NewLoader(config.NewViperAdapter())
			require.NoError(t, cfgLoader.LoadFromReader(bytes.NewBufferString(tt.cfgData), tt.cfgDataType, appCfg.Log))
			require.Equal(t, tt.expectedCfg(), appCfg.Log)

			// viper.Unmarshal
			appCfg = testAppConfig{Log: NewDefaultConfig()}
			vpr := viper.New()
			vpr.SetConfigType(string(tt.cfgDataType))
			require.NoError(t, vpr.ReadConfig(bytes.NewBufferString(tt.cfgData)))
			require.NoError(t, vpr.Unmarshal(&appCfg, func(c *mapstructure.DecoderConfig) {
				c.DecodeHook = mapstructure.TextUnmarshallerHookFunc()
			}))
			require.Equal(t, tt.expectedCfg(), appCfg.Log)

			// yaml/json unmarshal
			appCfg = testAppConfig{Log: NewDefaultConfig()}
			switch tt.cfgDataType {
			case config.DataTypeYAML:
				require.NoError(t, yaml.Unmarshal([]byte(tt.cfgData), &appCfg))
			case config.DataTypeJSON:
				require.NoError(t, json.Unmarshal([]byte(tt.cfgData), &appCfg))
			}
			require.Equal(t, tt.expectedCfg(), appCfg.Log)
		})
	}
}

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewConfig()
	require.NoError(t, config.NewDefaultLoader("").LoadFromReader(bytes.NewBuffer(nil), config.DataTypeYAML, cfg))
	require.Equal(t, NewDefaultConfig(), cfg)

	cfg = NewDefaultConfig()
	require.NoError(t, yaml.Unmarshal([]byte(""), cfg))
	require.Equal(t, NewDefaultConfig(), cfg)

	cfg = NewDefaultConfig()
	require.NoError(t, json.Unmarshal([]byte("{}"), cfg))
	require.Equal(t, NewDefaultConfig(), cfg)
}

func TestConfigWithKeyPrefix(t *testing.T) {
	cfgData := `
cli:
  log:
    level: debug
    format: text
`
	expectedCfg := NewDefaultConfig(WithKeyPrefix("cli.log"))
	expectedCfg.Level = LevelDebug
	expectedCfg.Format = FormatText

	cfg := NewConfig(WithKeyPrefix("cli.log"))
	require.NoError(t, config.NewDefaultLoader("").LoadFromReader(bytes.NewBufferString(cfgData), config.DataTypeYAML, cfg))
	require.Equal(t, expectedCfg, cfg)

	// Zero value falls back to the default prefix.
	cfg = &Config{}
	require.NoError(t, config.NewDefaultLoader("").LoadFromReader(
		bytes.NewBufferString("log:\n  level: error\n"), config.DataTypeYAML, cfg))
	require.Equal(t, LevelError, cfg.Level)
}

func TestConfigValidationErrors(t *testing.T) {
	tests := []struct {
		name           string
		yamlData       string
		expectedErrMsg string
	}{
		{
			name:           "unknown level",
			yamlData:       "log:\n  level: trace\n",
			expectedErrMsg: `log.level: unknown value "trace", should be one of [error warn info debug]`,
		},
		{
			name:           "unknown format",
			yamlData:       "log:\n  format: xml\n",
			expectedErrMsg: `log.format: unknown value "xml", should be one of [json text]`,
		},
		{
			name:           "unknown output",
			yamlData:       "log:\n  output: syslog\n",
			expectedErrMsg: `log.output: unknown value "syslog", should be one of [stdout stderr file]`,
		},
		{
			name:           "file output without path",
			yamlData:       "log:\n  output: file\n",
			expectedErrMsg: `log.file.path: cannot be empty when "file" output is used`,
		},
		{
			name:           "too small rotation size",
			yamlData:       "log:\n  file:\n    rotation:\n      maxSize: 10K\n",
			expectedErrMsg: `log.file.rotation.maxSize: should be >= 1M`,
		},
		{
			name:           "no rotation backups",
			yamlData:       "log:\n  file:\n    rotation:\n      maxBackups: 0\n",
			expectedErrMsg: `log.file.rotation.maxBackups: should be >= 1`,
		},
		{
			name:           "negative max age",
			yamlData:       "log:\n  file:\n    rotation:\n      maxAgeDays: -1\n",
			expectedErrMsg: `log.file.rotation.maxAgeDays: should be >= 0`,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			err := config.NewDefaultLoader("").LoadFromReader(bytes.NewBufferString(tt.yamlData), config.DataTypeYAML, NewConfig())
			require.EqualError(t, err, tt.expectedErrMsg)
		})
	}
}
