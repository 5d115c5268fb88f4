/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package config

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

var errTest = errors.New("test error")

func TestByteSize_Unmarshal(t *testing.T) {
	tests := []struct {
		name    string
		json    string
		yaml    string
		want    ByteSize
		wantErr bool
	}{
		{name: "integer", json: `1024`, yaml: `1024`, want: 1024},
		{name: "human-readable", json: `"10MB"`, yaml: `10MB`, want: 10 * 1024 * 1024},
		{name: "k8s suffix", json: `"512Mi"`, yaml: `512Mi`, want: 512 * 1024 * 1024},
		{name: "negative", json: `-1`, yaml: `-1`, wantErr: true},
		{name: "invalid", json: `"big"`, yaml: `big`, wantErr: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			var fromJSON, fromYAML ByteSize
			jsonErr := json.Unmarshal([]byte(tt.json), &fromJSON)
			yamlErr := yaml.Unmarshal([]byte(tt.yaml), &fromYAML)
			if tt.wantErr {
				require.Error(t, jsonErr)
				require.Error(t, yamlErr)
				return
			}
			require.NoError(t, jsonErr)
			require.NoError(t, yamlErr)
			require.Equal(t, tt.want, fromJSON)
			require.Equal(t, tt.want, fromYAML)
		})
	}
	require.Equal(t, "10M", ByteSize(10*1024*1024).String())
}

func TestTimeDuration_Unmarshal(t *testing.T) {
	tests := []struct {
		name    string
		json    string
		yaml    string
		want    TimeDuration
		wantErr bool
	}{
		{name: "nanoseconds", json: `1000000`, yaml: `1000000`, want: TimeDuration(time.Millisecond)},
		{name: "human-readable", json: `"1m30s"`, yaml: `1m30s`, want: TimeDuration(time.Second * 90)},
		{name: "negative", json: `-5`, yaml: `-5`, wantErr: true},
		{name: "invalid", json: `"soon"`, yaml: `soon`, wantErr: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			var fromJSON, fromYAML TimeDuration
			jsonErr := json.Unmarshal([]byte(tt.json), &fromJSON)
			yamlErr := yaml.Unmarshal([]byte(tt.yaml), &fromYAML)
			if tt.wantErr {
				require.Error(t, jsonErr)
				require.Error(t, yamlErr)
				return
			}
			require.NoError(t, jsonErr)
			require.NoError(t, yamlErr)
			require.Equal(t, tt.want, fromJSON)
			require.Equal(t, tt.want, fromYAML)
		})
	}
	require.Equal(t, "1m30s", TimeDuration(time.Second*90).String())
}
