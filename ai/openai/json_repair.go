// Copyright 2025 Poiesic Systems
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


package openai

import (
	"regexp"
	"strings"
)

// stripFences removes markdown code fences small models like to wrap JSON in.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// unquotedKey matches an object key that lost its opening quote but kept the
// closing one: `{ type": "x"` or `, related to": [`. Small local models
// produce this often enough to be worth repairing before unmarshalling.
var unquotedKey = regexp.MustCompile(`([{,]\s*)([A-Za-z][A-Za-z0-9_ ]*)":`)

// repairJSON fixes common JSON damage in model output. It restores missing
// opening quotes on object keys; anything it cannot recognize passes through
// untouched so the caller's unmarshal error stays honest.
func repairJSON(s string) string {
	return unquotedKey.ReplaceAllStringFunc(s, func(match string) string {
		groups := unquotedKey.FindStringSubmatch(match)
		key := strings.TrimSpace(groups[2])
		return groups[1] + `"` + key + `":`
	})
}
