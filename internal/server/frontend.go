package server

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/mevdschee/openspec-ui/pkg/openspec"
	"go.uber.org/zap"
)

// handleFrontend serves FRONTEND_DIR when configured, falling back to index.html for client
// routes, and otherwise renders the built-in overview page.
func (s *Server) handleFrontend(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "405 Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.frontendDir == "" {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		s.serveOverview(w, r)
		return
	}

	rel := strings.TrimPrefix(filepath.Clean("/"+r.URL.Path), "/")
	if rel == "" {
		rel = "index.html"
	}
	filePath := filepath.Join(s.frontendDir, filepath.FromSlash(rel))
	if info, err := os.Stat(filePath); err == nil && !info.IsDir() {
		http.ServeFile(w, r, filePath)
		return
	}
	if strings.Contains(filepath.Base(rel), ".") {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, filepath.Join(s.frontendDir, "index.html"))
}

// serveOverview renders a plain summary of sources and change counts.
func (s *Server) serveOverview(w http.ResponseWriter, r *http.Request) {
	var rows []map[string]interface{}
	for _, src := range s.registry.Sources() {
		counts := map[openspec.Status]int{}
		class := "invalid"
		if src.Valid {
			class = "valid"
			for _, c := range openspec.ScanChanges(src.Path, src.ID) {
				counts[c.Status]++
			}
		}
		rows = append(rows, map[string]interface{}{
			"Name":       src.Name,
			"Path":       src.Path,
			"Class":      class,
			"Draft":      counts[openspec.StatusDraft],
			"Todo":       counts[openspec.StatusTodo],
			"InProgress": counts[openspec.StatusInProgress],
			"Done":       counts[openspec.StatusDone],
			"Archived":   counts[openspec.StatusArchived],
		})
	}

	data := map[string]interface{}{
		"PageTitle": "openspec-ui",
		"Sources":   rows,
		"Watching":  s.supervisor.State().String(),
		"Time":      s.now().Format("2006-01-02 15:04:05"),
	}

	output, err := s.tmpl.RenderFile("views/index.html", data)
	if err != nil {
		s.logger.Error("template error", zap.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Length", fmt.Sprintf("%d", len(output)))
	io.WriteString(w, output)
}
