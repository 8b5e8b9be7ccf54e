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
	"fmt"
	"slices"
	"strings"
)

// Log severity levels, ordered from most to least verbose.
const (
	TRACE   = "TRACE"
	DEBUG   = "DEBUG"
	INFO    = "INFO"
	WARNING = "WARNING"
	ERROR   = "ERROR"
	OFF     = "OFF"
)

// LogSeverity is the datatype for the logging.severity param.
type LogSeverity string

func (s *LogSeverity) UnmarshalText(text []byte) error {
	textStr := strings.ToUpper(string(text))
	v := []string{TRACE, DEBUG, INFO, WARNING, ERROR, OFF}
	if !slices.Contains(v, textStr) {
		return fmt.Errorf("invalid log severity value: %s. It can only accept values in the list: %v", string(text), v)
	}
	*s = LogSeverity(textStr)
	return nil
}

// LogFormat is the datatype for the logging.format param: text or json.
type LogFormat string

func (f *LogFormat) UnmarshalText(text []byte) error {
	textStr := strings.ToLower(string(text))
	v := []string{"text", "json"}
	if !slices.Contains(v, textStr) {
		return fmt.Errorf("invalid log format value: %s. It can only accept values in the list: %v", string(text), v)
	}
	*f = LogFormat(textStr)
	return nil
}
