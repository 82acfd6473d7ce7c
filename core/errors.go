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


package core

import "errors"

// Domain validation errors
var (
	// ErrInvalidEpisode indicates an Episode failed validation.
	ErrInvalidEpisode = errors.New("invalid episode")

	// ErrInvalidStatus indicates an invalid Status value.
	ErrInvalidStatus = errors.New("invalid status")

	// ErrInvalidTransition indicates an illegal status change.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrEmptySourceName indicates the SourceName field is empty.
	ErrEmptySourceName = errors.New("source name cannot be empty")

	// ErrEmptyEpisodeNumber indicates the EpisodeNumber field is empty.
	ErrEmptyEpisodeNumber = errors.New("episode number cannot be empty")

	// ErrEmptyDocID indicates the DocID field is empty.
	ErrEmptyDocID = errors.New("doc id cannot be empty")
)
