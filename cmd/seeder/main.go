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

// Seeder writes a small local transcript corpus for end-to-end smoke runs
// with the filesystem source: metadata JSON plus transcript text files in
// the layout source/fs expects.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	corpusDir = flag.String("dir", "./corpus", "directory to write the corpus into")
	episodes  = flag.Int("episodes", 6, "number of episodes to generate")
)

var passages = []string{
	"The assembly gathered at dawn to debate the new constitution.",
	"Pamphlets circulated through the city faster than the censors could seize them.",
	"The harvest had failed for the second year running, and bread prices doubled.",
	"Deputies from the provinces arrived with instructions their electors had drafted.",
	"The old ministry resigned rather than sign the decree.",
	"Crowds filled the square outside the palace, waiting for news.",
	"A courier brought word that the garrison had refused its orders.",
	"The committee met through the night, drafting proclamations by candlelight.",
	"Rumors of foreign armies on the border spread through the markets.",
	"The printing presses ran without pause, turning out the morning's declarations.",
	"Veterans of the last war drilled volunteers in the public gardens.",
	"The treasury's ledgers showed debts no minister would admit aloud.",
	"Delegations queued at the hall with petitions from every district.",
	"The church bells rang the alarm twice before noon.",
	"Witnesses later disagreed about who fired the first shot.",
	"The new calendar renamed the months, but the seasons kept their own time.",
}

func main() {
	flag.Parse()

	if err := seed(*corpusDir, *episodes); err != nil {
		fmt.Fprintf(os.Stderr, "seeder: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %d episodes under %s\n", *episodes, *corpusDir)
}

func seed(dir string, count int) error {
	for _, sub := range []string{"metadata", "transcripts"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0755); err != nil {
			return err
		}
	}

	for i := 1; i <= count; i++ {
		number := fmt.Sprintf("1.%d", i)
		docID := fmt.Sprintf("seed-%03d", i)

		metadata := fmt.Sprintf(`{
  "google_doc_id": %q,
  "season": 1,
  "episode_number": %q,
  "title": "Seed Episode %d",
  "published": "2025-01-%02d"
}
`, docID, number, i, i)
		metaPath := filepath.Join(dir, "metadata", number+".json")
		if err := os.WriteFile(metaPath, []byte(metadata), 0644); err != nil {
			return err
		}

		transcriptPath := filepath.Join(dir, "transcripts", docID+".txt")
		if err := os.WriteFile(transcriptPath, []byte(transcript(i)), 0644); err != nil {
			return err
		}
	}
	return nil
}

// transcript composes a front-mattered document long enough to chunk,
// rotated so each episode's text differs.
func transcript(seedNum int) string {
	var builder strings.Builder
	fmt.Fprintf(&builder, "---\ntitle: Seed Episode %d\n---\n", seedNum)
	for round := 0; round < 8; round++ {
		for j := range passages {
			builder.WriteString(passages[(j+seedNum)%len(passages)])
			builder.WriteString(" ")
		}
	}
	return builder.String()
}
