// Package ideas stores free-form ideas as markdown files with a frontmatter header under a
// source's ideas/ directory.
package ideas

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Dir is the directory below a source root that holds ideas.
const Dir = "ideas"

var (
	// ErrNotFound is returned when an idea does not exist.
	ErrNotFound = errors.New("idea not found")
	// ErrInvalid is returned for input that cannot be stored.
	ErrInvalid = errors.New("invalid idea")
)

var slugPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)

// Idea is one stored idea.
type Idea struct {
	ID          string    `json:"id"`
	SourceID    string    `json:"sourceId"`
	ProjectID   *string   `json:"projectId"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Input carries the user-editable fields of an idea.
type Input struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	ProjectID   *string `json:"projectId"`
	SourceID    string  `json:"sourceId,omitempty"`
}

type header struct {
	Title     string    `yaml:"title"`
	ProjectID *string   `yaml:"projectId,omitempty"`
	CreatedAt time.Time `yaml:"createdAt"`
	UpdatedAt time.Time `yaml:"updatedAt"`
}

// Slugify derives a file name stem from a title.
func Slugify(title string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	slug := strings.TrimRight(b.String(), "-")
	if len(slug) > 60 {
		slug = strings.TrimRight(slug[:60], "-")
	}
	if slug == "" {
		slug = "idea"
	}
	return slug
}

func path(root, slug string) (string, error) {
	if !slugPattern.MatchString(slug) {
		return "", ErrNotFound
	}
	return filepath.Join(root, Dir, slug+".md"), nil
}

func parse(sourceID, slug string, content []byte, modTime time.Time) *Idea {
	idea := &Idea{
		ID:        sourceID + "/" + slug,
		SourceID:  sourceID,
		Title:     slug,
		CreatedAt: modTime,
		UpdatedAt: modTime,
	}
	raw, body, ok := splitFrontmatter(string(content))
	idea.Description = strings.TrimRight(body, "\n")
	if !ok {
		return idea
	}
	var h header
	if err := decodeFrontmatter(raw, &h); err != nil {
		return idea
	}
	if h.Title != "" {
		idea.Title = h.Title
	}
	idea.ProjectID = h.ProjectID
	if !h.CreatedAt.IsZero() {
		idea.CreatedAt = h.CreatedAt
	}
	if !h.UpdatedAt.IsZero() {
		idea.UpdatedAt = h.UpdatedAt
	}
	return idea
}

func validate(in Input) error {
	if strings.TrimSpace(in.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalid)
	}
	return nil
}

// List returns every idea stored in the source rooted at root, newest first.
func List(root, sourceID string) []Idea {
	ideas := []Idea{}
	entries, err := os.ReadDir(filepath.Join(root, Dir))
	if err != nil {
		return ideas
	}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".md" {
			continue
		}
		if idea, err := Get(root, sourceID, strings.TrimSuffix(name, ".md")); err == nil {
			ideas = append(ideas, *idea)
		}
	}
	sort.SliceStable(ideas, func(i, j int) bool {
		return ideas[i].CreatedAt.After(ideas[j].CreatedAt)
	})
	return ideas
}

// Get reads one idea by slug.
func Get(root, sourceID, slug string) (*Idea, error) {
	p, err := path(root, slug)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	content, err := os.ReadFile(p)
	if err != nil {
		return nil, err
	}
	return parse(sourceID, slug, content, info.ModTime()), nil
}

// write stores an idea through a temp file in the same directory. With replace the temp file is
// renamed over p; otherwise it is hard-linked to p, which fails with os.ErrExist when p is taken.
func write(p string, h header, description string, replace bool) error {
	data, err := encodeFrontmatter(h, description)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(p), ".idea-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return err
	}
	if replace {
		return os.Rename(tmpName, p)
	}
	return os.Link(tmpName, p)
}

// Create stores a new idea. The slug comes from the title and gets a numeric suffix when taken.
func Create(root, sourceID string, in Input, now time.Time) (*Idea, error) {
	if err := validate(in); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Join(root, Dir), 0755); err != nil {
		return nil, fmt.Errorf("failed to create ideas directory: %w", err)
	}

	now = now.UTC().Truncate(time.Second)
	h := header{
		Title:     strings.TrimSpace(in.Title),
		ProjectID: in.ProjectID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	base := Slugify(in.Title)
	for n := 1; n < 1000; n++ {
		slug := base
		if n > 1 {
			slug = base + "-" + strconv.Itoa(n)
		}
		p := filepath.Join(root, Dir, slug+".md")
		err := write(p, h, in.Description, false)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to write idea: %w", err)
		}
		return Get(root, sourceID, slug)
	}
	return nil, fmt.Errorf("%w: too many ideas named %q", ErrInvalid, base)
}

// Update replaces the title and description of an existing idea, keeping its creation time.
func Update(root, sourceID, slug string, in Input, now time.Time) (*Idea, error) {
	if err := validate(in); err != nil {
		return nil, err
	}
	existing, err := Get(root, sourceID, slug)
	if err != nil {
		return nil, err
	}
	h := header{
		Title:     strings.TrimSpace(in.Title),
		ProjectID: existing.ProjectID,
		CreatedAt: existing.CreatedAt,
		UpdatedAt: now.UTC().Truncate(time.Second),
	}
	if in.ProjectID != nil {
		h.ProjectID = in.ProjectID
	}
	p, _ := path(root, slug)
	if err := write(p, h, in.Description, true); err != nil {
		return nil, fmt.Errorf("failed to write idea: %w", err)
	}
	return Get(root, sourceID, slug)
}

// Delete removes an idea.
func Delete(root, slug string) error {
	p, err := path(root, slug)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return err
	}
	return nil
}
