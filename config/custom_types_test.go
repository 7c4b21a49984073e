/*
Copyright © 2025 Acronis International GmbH.

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

func TestTimeDuration(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		json    string
		want    time.Duration
		wantErr bool
	}{
		{name: "human-readable", yaml: `d: 1m30s`, json: `{"d":"1m30s"}`, want: 90 * time.Second},
		{name: "nanoseconds", yaml: `d: 1000`, json: `{"d":1000}`, want: 1000},
		{name: "negative", yaml: `d: -5`, json: `{"d":-5}`, wantErr: true},
		{name: "garbage", yaml: `d: soon`, json: `{"d":"soon"}`, wantErr: true},
	}
	type holder struct {
		D TimeDuration `yaml:"d" json:"d"`
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var fromYAML, fromJSON holder
			yamlErr := yaml.Unmarshal([]byte(tt.yaml), &fromYAML)
			jsonErr := json.Unmarshal([]byte(tt.json), &fromJSON)
			if tt.wantErr {
				require.Error(t, yamlErr)
				require.Error(t, jsonErr)
				return
			}
			require.NoError(t, yamlErr)
			require.NoError(t, jsonErr)
			require.Equal(t, tt.want, time.Duration(fromYAML.D))
			require.Equal(t, tt.want, time.Duration(fromJSON.D))
		})
	}

	out, err := json.Marshal(TimeDuration(5 * time.Second))
	require.NoError(t, err)
	require.Equal(t, `"5s"`, string(out))
}
