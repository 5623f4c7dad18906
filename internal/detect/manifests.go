package detect

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
	gotoml "github.com/pelletier/go-toml/v2"
	"golang.org/x/mod/modfile"

	"atlas/internal/atlasfile"
)

// readOptional returns nil data when the file does not exist.
func readOptional(root, name string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(root, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return data, err
}

var forgeHosts = []string{"github.com/", "gitlab.com/", "bitbucket.org/", "codeberg.org/"}

// GoMod reads the module path and Go version from go.mod.
func GoMod(root string) (*Partial, error) {
	data, err := readOptional(root, "go.mod")
	if data == nil || err != nil {
		return nil, err
	}
	f, err := modfile.ParseLax("go.mod", data, nil)
	if err != nil {
		return nil, err
	}
	if f.Module == nil {
		return nil, fmt.Errorf("no module directive")
	}

	modPath := f.Module.Mod.Path
	p := &Partial{
		Name:     moduleName(modPath),
		Tags:     []string{"go"},
		Metadata: map[string]string{"go_module": modPath},
	}
	if f.Go != nil {
		p.Metadata["go_version"] = f.Go.Version
	}
	for _, host := range forgeHosts {
		if strings.HasPrefix(modPath, host) {
			if parts := strings.SplitN(modPath, "/", 4); len(parts) >= 3 {
				p.Links.Set("repo", "https://"+strings.Join(parts[:3], "/"))
			}
			break
		}
	}
	return p, nil
}

var majorSuffix = regexp.MustCompile(`^v[0-9]+$`)

// moduleName is the last module path element, skipping a /vN suffix.
func moduleName(modPath string) string {
	name := path.Base(modPath)
	if majorSuffix.MatchString(name) {
		name = path.Base(path.Dir(modPath))
	}
	return name
}

type packageJSON struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Keywords    []string        `json:"keywords"`
	Homepage    string          `json:"homepage"`
	Repository  json.RawMessage `json:"repository"`
}

// PackageJSON reads name, description, keywords and links from package.json.
// The language tag is typescript when tsconfig.json is present.
func PackageJSON(root string) (*Partial, error) {
	data, err := readOptional(root, "package.json")
	if data == nil || err != nil {
		return nil, err
	}
	var pkg packageJSON
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil, err
	}

	lang := "javascript"
	if _, err := os.Stat(filepath.Join(root, "tsconfig.json")); err == nil {
		lang = "typescript"
	}
	p := &Partial{
		Name:    strings.TrimPrefix(pkg.Name[strings.LastIndex(pkg.Name, "/")+1:], "@"),
		Summary: atlasfile.FoldSummary(pkg.Description),
		Tags:    unionTags([]string{lang}, pkg.Keywords),
	}
	if repo := packageRepository(pkg.Repository); repo != "" {
		p.Links.Set("repo", repo)
	}
	if pkg.Homepage != "" {
		p.Links.Set("homepage", pkg.Homepage)
	}
	return p, nil
}

// packageRepository accepts both the string and the {type, url} forms.
func packageRepository(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var obj struct {
		URL string `json:"url"`
	}
	if json.Unmarshal(raw, &obj) == nil {
		return strings.TrimPrefix(obj.URL, "git+")
	}
	return ""
}

type cargoManifest struct {
	Package struct {
		Name string `toml:"name"`
		// Workspace-inherited fields are tables, so these stay untyped.
		Description   interface{} `toml:"description"`
		Keywords      interface{} `toml:"keywords"`
		Repository    interface{} `toml:"repository"`
		Homepage      interface{} `toml:"homepage"`
		Documentation interface{} `toml:"documentation"`
	} `toml:"package"`
}

// Cargo reads the [package] table of Cargo.toml.
func Cargo(root string) (*Partial, error) {
	data, err := readOptional(root, "Cargo.toml")
	if data == nil || err != nil {
		return nil, err
	}
	var m cargoManifest
	if _, err := toml.Decode(string(data), &m); err != nil {
		return nil, err
	}

	p := &Partial{
		Name:    m.Package.Name,
		Summary: atlasfile.FoldSummary(asString(m.Package.Description)),
		Tags:    unionTags([]string{"rust"}, asStrings(m.Package.Keywords)),
	}
	setLink(p, "repo", asString(m.Package.Repository))
	setLink(p, "homepage", asString(m.Package.Homepage))
	setLink(p, "docs", asString(m.Package.Documentation))
	return p, nil
}

type pyproject struct {
	Project struct {
		Name        string            `toml:"name"`
		Description string            `toml:"description"`
		Keywords    []string          `toml:"keywords"`
		URLs        map[string]string `toml:"urls"`
	} `toml:"project"`
	Tool struct {
		Poetry struct {
			Name        string   `toml:"name"`
			Description string   `toml:"description"`
			Keywords    []string `toml:"keywords"`
			Repository  string   `toml:"repository"`
			Homepage    string   `toml:"homepage"`
		} `toml:"poetry"`
	} `toml:"tool"`
}

// Pyproject reads PEP 621 [project] metadata, falling back to [tool.poetry].
func Pyproject(root string) (*Partial, error) {
	data, err := readOptional(root, "pyproject.toml")
	if data == nil || err != nil {
		return nil, err
	}
	var py pyproject
	if err := gotoml.Unmarshal(data, &py); err != nil {
		return nil, err
	}

	proj, poetry := py.Project, py.Tool.Poetry
	p := &Partial{
		Name:    firstNonEmpty(proj.Name, poetry.Name),
		Summary: atlasfile.FoldSummary(firstNonEmpty(proj.Description, poetry.Description)),
		Tags:    unionTags(unionTags([]string{"python"}, proj.Keywords), poetry.Keywords),
	}
	for _, key := range []string{"Repository", "Source", "repository", "source"} {
		if u := proj.URLs[key]; u != "" {
			setLink(p, "repo", u)
			break
		}
	}
	for _, key := range []string{"Homepage", "homepage"} {
		if u := proj.URLs[key]; u != "" {
			setLink(p, "homepage", u)
			break
		}
	}
	for _, key := range []string{"Documentation", "documentation"} {
		if u := proj.URLs[key]; u != "" {
			setLink(p, "docs", u)
			break
		}
	}
	setLink(p, "repo", poetry.Repository)
	setLink(p, "homepage", poetry.Homepage)
	return p, nil
}

func setLink(p *Partial, key, value string) {
	if value == "" {
		return
	}
	if _, ok := p.Links.Get(key); !ok {
		p.Links.Set(key, value)
	}
}

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}

func asStrings(v interface{}) []string {
	items, _ := v.([]interface{})
	var out []string
	for _, it := range items {
		if s, ok := it.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
