package detect

import (
	"bufio"
	"bytes"
	"strings"

	"atlas/internal/atlasfile"
)

var readmeNames = []string{"README.md", "README.markdown", "README.rst", "README.txt", "README"}

// Readme takes the project name from the first top-level heading and the
// summary from the first prose paragraph. Badges, HTML, and headings are skipped.
func Readme(root string) (*Partial, error) {
	for _, name := range readmeNames {
		data, err := readOptional(root, name)
		if err != nil {
			return nil, err
		}
		if data != nil {
			return parseReadme(data), nil
		}
	}
	return nil, nil
}

func parseReadme(data []byte) *Partial {
	p := &Partial{}
	var para []string
	inFence := false

	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if strings.HasPrefix(line, "```") {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}
		switch {
		case strings.HasPrefix(line, "# ") && p.Name == "":
			p.Name = strings.TrimSpace(strings.TrimPrefix(line, "# "))
			continue
		case line == "":
			if len(para) > 0 {
				p.Summary = atlasfile.FoldSummary(strings.Join(para, " "))
				return p
			}
			continue
		case isDecoration(line):
			// A heading or badge ends any paragraph in progress.
			if len(para) > 0 {
				p.Summary = atlasfile.FoldSummary(strings.Join(para, " "))
				return p
			}
			continue
		}
		para = append(para, line)
	}
	if len(para) > 0 {
		p.Summary = atlasfile.FoldSummary(strings.Join(para, " "))
	}
	return p
}

func isDecoration(line string) bool {
	switch {
	case strings.HasPrefix(line, "#"),
		strings.HasPrefix(line, "!["),
		strings.HasPrefix(line, "[!["),
		strings.HasPrefix(line, "<"),
		strings.HasPrefix(line, "==="),
		strings.HasPrefix(line, "---"),
		strings.HasPrefix(line, "|"):
		return true
	}
	return false
}
