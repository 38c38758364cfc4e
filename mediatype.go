// Copyright 2026 Conductor OSS
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.

package fileconv

import (
	"strings"
)

// MediaType identifies the content family of a file, e.g. "text/plain" or
// "image/jpeg; charset=binary". It is derived by the Detector and may carry
// parameters after the essence.
type MediaType string

// Unknown is the MediaType of content the Detector could not classify.
const Unknown MediaType = ""

// String implements fmt.Stringer.
func (m MediaType) String() string {
	if m == Unknown {
		return "unknown"
	}
	return string(m)
}

// IsUnknown reports whether m is Unknown.
func (m MediaType) IsUnknown() bool {
	return m == Unknown
}

// Essence returns the type/subtype part without parameters, lowercased.
func (m MediaType) Essence() string {
	essence, _, _ := strings.Cut(string(m), ";")
	return strings.ToLower(strings.TrimSpace(essence))
}

// Param returns the value of the named parameter, or "" if absent.
func (m MediaType) Param(name string) string {
	_, params, ok := strings.Cut(string(m), ";")
	if !ok {
		return ""
	}
	for _, p := range strings.Split(params, ";") {
		k, v, ok := strings.Cut(strings.TrimSpace(p), "=")
		if ok && strings.EqualFold(strings.TrimSpace(k), name) {
			return strings.Trim(strings.TrimSpace(v), `"'`)
		}
	}
	return ""
}

// Charset returns the charset parameter, if any.
func (m MediaType) Charset() string {
	return m.Param("charset")
}

// HasPrefix reports whether key is a literal prefix of m. This is the
// registry and dispatch matching rule: "text/plain" matches
// "text/plain; charset=utf-8".
func (m MediaType) HasPrefix(key MediaType) bool {
	if key == Unknown {
		return false
	}
	return strings.HasPrefix(string(m), string(key))
}

// withParamsOf returns m's essence followed by the parameters of other.
func (m MediaType) withParamsOf(other MediaType) MediaType {
	_, params, ok := strings.Cut(string(other), ";")
	if !ok {
		return MediaType(m.Essence())
	}
	return MediaType(m.Essence() + ";" + params)
}
