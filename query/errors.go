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


package query

import "errors"

var (
	// ErrEmptyQuestion indicates a request with no question text.
	ErrEmptyQuestion = errors.New("question must not be empty")

	// ErrEmptyWorkspace indicates a request with no workspace id.
	ErrEmptyWorkspace = errors.New("workspace id must not be empty")

	// ErrProviderRequired indicates the engine was built without an AI
	// provider.
	ErrProviderRequired = errors.New("ai provider is required")

	// ErrStoresRequired indicates the engine was built without its stores.
	ErrStoresRequired = errors.New("vector and graph stores are required")
)
