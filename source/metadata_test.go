package source

import (
	"errors"
	"testing"

	"github.com/poiesic/chronicler/core"
)

func TestParseMetadata(t *testing.T) {
	data := []byte(`{
		"google_doc_id": "doc-abc",
		"season": 3,
		"episode_number": "3.12",
		"title": "The Terror",
		"published": "2015-06-01"
	}`)

	episode, err := ParseMetadata(data, "revolutions", "metadata/3.12.json")
	if err != nil {
		t.Fatalf("ParseMetadata failed: %v", err)
	}
	if episode.Season != 3 {
		t.Errorf("expected season 3, got %d", episode.Season)
	}
	if episode.EpisodeNumber != "3.12" {
		t.Errorf("expected episode number 3.12, got %s", episode.EpisodeNumber)
	}
	if episode.DocID != "doc-abc" {
		t.Errorf("expected doc ID doc-abc, got %s", episode.DocID)
	}
	if episode.Status != core.StatusUnprocessed {
		t.Errorf("expected unprocessed status, got %s", episode.Status)
	}
	if episode.ObjectPath != "metadata/3.12.json" {
		t.Errorf("expected object path to be recorded, got %s", episode.ObjectPath)
	}
}

func TestParseMetadataStringSeason(t *testing.T) {
	data := []byte(`{"google_doc_id": "d", "season": "7", "episode_number": 12}`)

	episode, err := ParseMetadata(data, "revolutions", "metadata/x.json")
	if err != nil {
		t.Fatalf("ParseMetadata failed: %v", err)
	}
	if episode.Season != 7 {
		t.Errorf("expected season 7 from string, got %d", episode.Season)
	}
	if episode.EpisodeNumber != "12" {
		t.Errorf("expected episode number 12 from number, got %s", episode.EpisodeNumber)
	}
}

func TestParseMetadataMissingFields(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"missing doc ID", `{"season": 1, "episode_number": "1.1"}`},
		{"missing episode number", `{"google_doc_id": "d", "season": 1}`},
		{"empty doc ID", `{"google_doc_id": "", "season": 1, "episode_number": "1.1"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseMetadata([]byte(tt.data), "revolutions", "metadata/x.json")
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !errors.Is(err, core.ErrInvalidEpisode) {
				t.Errorf("expected ErrInvalidEpisode, got %v", err)
			}
		})
	}
}

func TestParseMetadataInvalidJSON(t *testing.T) {
	_, err := ParseMetadata([]byte("not json"), "revolutions", "metadata/x.json")
	if err == nil {
		t.Fatal("expected parse error, got nil")
	}
}

func TestSortEpisodes(t *testing.T) {
	episodes := []*core.Episode{
		{Season: 2, EpisodeNumber: "2.1"},
		{Season: 1, EpisodeNumber: "1.10"},
		{Season: 1, EpisodeNumber: "1.9"},
		{Season: 1, EpisodeNumber: "1.2"},
	}

	SortEpisodes(episodes)

	want := []string{"1.2", "1.9", "1.10", "2.1"}
	for i, number := range want {
		if episodes[i].EpisodeNumber != number {
			t.Errorf("position %d: expected %s, got %s", i, number, episodes[i].EpisodeNumber)
		}
	}
}

func TestSortEpisodesLargeMinorNumbers(t *testing.T) {
	episodes := []*core.Episode{
		{Season: 1, EpisodeNumber: "11"},
		{Season: 1, EpisodeNumber: "10.100"},
		{Season: 1, EpisodeNumber: "10.99"},
		{Season: 1, EpisodeNumber: "10.9"},
	}

	SortEpisodes(episodes)

	want := []string{"10.9", "10.99", "10.100", "11"}
	for i, number := range want {
		if episodes[i].EpisodeNumber != number {
			t.Errorf("position %d: expected %s, got %s", i, number, episodes[i].EpisodeNumber)
		}
	}
}

func TestSortEpisodesSuffixedNumbers(t *testing.T) {
	episodes := []*core.Episode{
		{Season: 1, EpisodeNumber: "010"},
		{Season: 1, EpisodeNumber: "003a"},
		{Season: 1, EpisodeNumber: "002"},
	}

	SortEpisodes(episodes)

	want := []string{"002", "003a", "010"}
	for i, number := range want {
		if episodes[i].EpisodeNumber != number {
			t.Errorf("position %d: expected %s, got %s", i, number, episodes[i].EpisodeNumber)
		}
	}
}
