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

import "fmt"

// ValidateEpisode validates an Episode according to domain rules.
//
// Validation rules:
//   - SourceName must not be empty
//   - EpisodeNumber must not be empty
//   - DocID must not be empty
//   - Status must be valid
//
// NOT validated (populated during processing):
//   - ChunkCount (0 until the episode is done)
//   - LastError (empty unless a run failed)
//   - ID (derived from SourceName/EpisodeNumber by the ledger)
func ValidateEpisode(episode *Episode) error {
	if episode == nil {
		return fmt.Errorf("%w: episode is nil", ErrInvalidEpisode)
	}

	if episode.SourceName == "" {
		return fmt.Errorf("%w: %w", ErrInvalidEpisode, ErrEmptySourceName)
	}

	if episode.EpisodeNumber == "" {
		return fmt.Errorf("%w: %w", ErrInvalidEpisode, ErrEmptyEpisodeNumber)
	}

	if episode.DocID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidEpisode, ErrEmptyDocID)
	}

	if err := ValidateStatus(episode.Status); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidEpisode, err)
	}

	return nil
}

// ValidateStatus validates that a Status has a valid value.
func ValidateStatus(status Status) error {
	switch status {
	case StatusUnprocessed, StatusInProgress, StatusDone, StatusFailed:
		return nil
	default:
		return fmt.Errorf("%w: value %d", ErrInvalidStatus, status)
	}
}

// ValidateTransition validates a status change against the lifecycle table.
func ValidateTransition(from, to Status) error {
	if err := ValidateStatus(from); err != nil {
		return err
	}
	if err := ValidateStatus(to); err != nil {
		return err
	}
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}
