// Copyright 2025 The vfscore Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cfg

import (
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Unmarshal decodes v's merged flag/env/file state into a Config. Typed
// fields (LogSeverity, LogFormat) are decoded through their UnmarshalText
// so that an invalid value fails here, at startup, rather than deep inside
// the logger.
func Unmarshal(v *viper.Viper) (Config, error) {
	var c Config
	err := v.Unmarshal(&c, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.TextUnmarshallerHookFunc(),
	)), func(decoderConfig *mapstructure.DecoderConfig) {
		// Reject config keys that do not correspond to any field, since
		// a typo in a YAML key is otherwise silently ignored.
		decoderConfig.ErrorUnused = true
		decoderConfig.TagName = "yaml"
	})
	return c, err
}
