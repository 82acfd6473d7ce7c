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

package ingestion

import (
	"fmt"
	"strings"
)

// minTranscriptLength is the smallest cleaned transcript worth indexing.
// Shorter documents are usually placeholders or export failures.
const minTranscriptLength = 100

// ExtractTranscript strips the "---"-delimited front-matter header from a
// raw document and returns the transcript body. Documents without a
// complete header pass through unchanged.
func ExtractTranscript(raw string) string {
	parts := strings.Split(raw, "---")
	if len(parts) >= 3 {
		return strings.TrimSpace(strings.Join(parts[2:], "---"))
	}
	return strings.TrimSpace(raw)
}

// PrepareTranscript extracts the transcript body and enforces the minimum
// content length.
func PrepareTranscript(raw string) (string, error) {
	transcript := ExtractTranscript(raw)
	if len(transcript) < minTranscriptLength {
		return "", fmt.Errorf("%w: %d chars", ErrTranscriptTooShort, len(transcript))
	}
	return transcript, nil
}
