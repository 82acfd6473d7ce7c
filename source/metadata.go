package source

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/poiesic/chronicler/core"
)

// episodeMetadata is the on-disk shape of one metadata JSON object.
// Season and episode number arrive as either strings or numbers depending
// on which exporter wrote the file, so both are decoded leniently.
type episodeMetadata struct {
	GoogleDocID   string `json:"google_doc_id"`
	Season        any    `json:"season"`
	EpisodeNumber any    `json:"episode_number"`
	Title         string `json:"title"`
	Published     string `json:"published"`
}

// ParseMetadata decodes one metadata JSON document into an Episode for the
// given corpus. Returns an error if required fields are missing.
func ParseMetadata(data []byte, sourceName, objectPath string) (*core.Episode, error) {
	var meta episodeMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("parse %s: %w", objectPath, err)
	}

	episode := &core.Episode{
		SourceName:    sourceName,
		Season:        coerceInt(meta.Season),
		EpisodeNumber: coerceString(meta.EpisodeNumber),
		Title:         meta.Title,
		DocID:         meta.GoogleDocID,
		ObjectPath:    objectPath,
		Published:     meta.Published,
		Status:        core.StatusUnprocessed,
	}

	if err := core.ValidateEpisode(episode); err != nil {
		return nil, fmt.Errorf("%s: %w", objectPath, err)
	}
	return episode, nil
}

// SortEpisodes orders episodes numerically by (season, episode number).
// Episode numbers like "1.10" sort after "1.9", and suffixed numbers like
// "003a" fall back to their numeric prefix.
func SortEpisodes(episodes []*core.Episode) {
	sort.SliceStable(episodes, func(i, j int) bool {
		if episodes[i].Season != episodes[j].Season {
			return episodes[i].Season < episodes[j].Season
		}
		return orderOf(episodes[i].EpisodeNumber).before(orderOf(episodes[j].EpisodeNumber))
	})
}

// episodeOrder is the sortable (major, minor) reading of an episode number.
// Kept as two integers: folding the minor part into a fraction would put
// "10.100" after "11".
type episodeOrder struct {
	major, minor int
}

func orderOf(number string) episodeOrder {
	majorPart, minorPart, _ := strings.Cut(number, ".")
	return episodeOrder{major: leadingInt(majorPart), minor: leadingInt(minorPart)}
}

func (o episodeOrder) before(other episodeOrder) bool {
	if o.major != other.major {
		return o.major < other.major
	}
	return o.minor < other.minor
}

// leadingInt parses the numeric prefix of s, tolerating suffixes
// like "003a".
func leadingInt(s string) int {
	end := 0
	for end < len(s) && (s[end] >= '0' && s[end] <= '9') {
		end++
	}
	if end == 0 {
		return 0
	}
	v, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return v
}

func coerceInt(v any) int {
	switch t := v.(type) {
	case float64:
		return int(t)
	case string:
		n, err := strconv.Atoi(t)
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

func coerceString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		// JSON numbers decode as float64; render "3" not "3.000000"
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}
