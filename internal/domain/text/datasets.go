package text

import (
	"os"
	"regexp"
	"strings"
	"sync"

	"ispeak-server-go/internal/platform/errors"
)

var (
	levelExactRe   = regexp.MustCompile(`^A[12]$|^B[12]$|^C[12]$`)
	levelExtractRe = regexp.MustCompile(`(?i)[ABC][12]`)
	headerHintRe   = regexp.MustCompile(`(?i)headword|word|cefr|level`)
	wordHeaderRe   = regexp.MustCompile(`(?i)headword|word`)
	levelHeaderRe  = regexp.MustCompile(`(?i)cefr|level`)
	idiomHeaderRe  = regexp.MustCompile(`(?i)idiom`)
)

// CEFRLevels is the fixed reporting order for vocabulary distributions.
var CEFRLevels = []string{"A1", "A2", "B1", "B2", "C1", "C2", "UNKNOWN"}

// Datasets lazily loads the CEFR wordlist and the idioms list from CSV files
// and caches them for the life of the process.
type Datasets struct {
	cefrPath   string
	idiomsPath string

	cefrOnce sync.Once
	cefrMap  map[string]string
	cefrErr  error

	idiomsOnce sync.Once
	idioms     []string
	idiomsErr  error
}

func NewDatasets(cefrPath, idiomsPath string) *Datasets {
	return &Datasets{cefrPath: cefrPath, idiomsPath: idiomsPath}
}

// CEFRDict returns the headword → level map.
func (d *Datasets) CEFRDict() (map[string]string, error) {
	d.cefrOnce.Do(func() {
		d.cefrMap, d.cefrErr = loadCEFRDict(d.cefrPath)
	})
	return d.cefrMap, d.cefrErr
}

// Idioms returns the lowercased idiom list.
func (d *Datasets) Idioms() ([]string, error) {
	d.idiomsOnce.Do(func() {
		d.idioms, d.idiomsErr = loadIdioms(d.idiomsPath)
	})
	return d.idioms, d.idiomsErr
}

func loadCEFRDict(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.KindText, "cefr.load", "read CEFR wordlist", err)
	}
	headers, rows, hasHeader := parseCSV(string(data))

	headIdx, levelIdx := -1, -1
	if hasHeader {
		for i, h := range headers {
			if headIdx == -1 && wordHeaderRe.MatchString(h) {
				headIdx = i
			}
			if levelIdx == -1 && levelHeaderRe.MatchString(h) {
				levelIdx = i
			}
		}
	}
	if headIdx == -1 || levelIdx == -1 {
		headIdx, levelIdx = 0, 1
	}

	dict := make(map[string]string, len(rows))
	for _, row := range rows {
		if len(row) <= headIdx {
			continue
		}
		w := strings.ToLower(strings.TrimSpace(row[headIdx]))
		lvl := "UNKNOWN"
		if len(row) > levelIdx {
			lvl = strings.ToUpper(strings.TrimSpace(row[levelIdx]))
		}
		if !levelExactRe.MatchString(lvl) {
			if m := levelExtractRe.FindString(lvl); m != "" {
				lvl = strings.ToUpper(m)
			} else {
				lvl = "UNKNOWN"
			}
		}
		if w != "" {
			dict[w] = lvl
		}
	}
	return dict, nil
}

func loadIdioms(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.KindText, "idioms.load", "read idioms list", err)
	}
	headers, rows, hasHeader := parseCSV(string(data))
	if !hasHeader && len(rows) > 0 && idiomHeaderRe.MatchString(strings.Join(rows[0], "|")) {
		headers = rows[0]
		rows = rows[1:]
	}

	idx := 0
	for i, h := range headers {
		if idiomHeaderRe.MatchString(h) {
			idx = i
			break
		}
	}

	var list []string
	for _, row := range rows {
		if len(row) <= idx {
			continue
		}
		if v := strings.TrimSpace(row[idx]); v != "" {
			list = append(list, strings.ToLower(v))
		}
	}
	return list, nil
}

// parseCSV splits lines on an auto-detected delimiter (comma, semicolon or
// tab) and detects a header row by its column names.
func parseCSV(raw string) (headers []string, rows [][]string, hasHeader bool) {
	var lines []string
	for _, l := range strings.Split(raw, "\n") {
		l = strings.TrimRight(l, "\r")
		if strings.TrimSpace(l) != "" {
			lines = append(lines, l)
		}
	}
	if len(lines) == 0 {
		return nil, nil, false
	}

	delim := ","
	best := strings.Count(lines[0], ",")
	if n := strings.Count(lines[0], ";"); n > best {
		delim, best = ";", n
	}
	if n := strings.Count(lines[0], "\t"); n > best {
		delim = "\t"
	}

	split := func(line string) []string {
		parts := strings.Split(line, delim)
		for i, p := range parts {
			p = strings.TrimSpace(p)
			p = strings.TrimPrefix(p, `"`)
			p = strings.TrimSuffix(p, `"`)
			parts[i] = strings.TrimSpace(p)
		}
		return parts
	}

	headers = split(lines[0])
	dataLines := lines[1:]
	hasHeader = headerHintRe.MatchString(strings.Join(headers, "|"))
	if !hasHeader {
		dataLines = lines
		headers = nil
	}
	rows = make([][]string, 0, len(dataLines))
	for _, l := range dataLines {
		rows = append(rows, split(l))
	}
	return headers, rows, hasHeader
}

// WordLevels maps each distinct transcript token to its CEFR level, with
// unlisted words marked UNKNOWN.
func WordLevels(transcript string, dict map[string]string) map[string]string {
	out := make(map[string]string)
	for _, w := range TokenizeAlpha(transcript) {
		if lvl, ok := dict[w]; ok {
			out[w] = lvl
		} else {
			out[w] = "UNKNOWN"
		}
	}
	return out
}

// CEFRDistribution counts distinct words per level in the fixed level order.
func CEFRDistribution(wordLevels map[string]string) map[string]int {
	dist := make(map[string]int, len(CEFRLevels))
	for _, l := range CEFRLevels {
		dist[l] = 0
	}
	for _, lvl := range wordLevels {
		dist[lvl]++
	}
	return dist
}

// FindIdioms returns every idiom from the list present in the transcript as
// a whole phrase.
func FindIdioms(transcript string, idioms []string) []string {
	lowered := strings.ToLower(transcript)
	var found []string
	for _, idiom := range idioms {
		if idiom == "" {
			continue
		}
		re := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(idiom) + `\b`)
		if re.MatchString(lowered) {
			found = append(found, idiom)
		}
	}
	return found
}
