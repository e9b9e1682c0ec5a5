// Package report renders the chart image and the HTML status page that are refreshed after each sample.
package report

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

//go:embed templates/basic_view.html
var templates embed.FS

const defaultTemplate = "templates/basic_view.html"

// Config locates the rendered files. An empty TemplatePath selects the built-in page.
type Config struct {
	ChartPath    string
	HTMLPath     string
	TemplatePath string
	ChartWidth   float64 // inches
	ChartHeight  float64 // inches
}

// Renderer owns the parsed HTML template and writes the report files.
// Calls are serialised so that two renders never write the same file at once.
type Renderer struct {
	lock     sync.Mutex
	config   Config
	template *template.Template
	logger   *slog.Logger
}

func New(config Config) (*Renderer, error) {
	if config.ChartPath == "" || config.HTMLPath == "" {
		return nil, errors.New("chart and html paths must be set")
	}
	if config.ChartWidth <= 0 {
		config.ChartWidth = 6.4
	}
	if config.ChartHeight <= 0 {
		config.ChartHeight = 4.8
	}

	var tmpl *template.Template
	var err error
	if config.TemplatePath != "" {
		tmpl, err = template.ParseFiles(config.TemplatePath)
	} else {
		tmpl, err = template.ParseFS(templates, defaultTemplate)
	}
	if err != nil {
		return nil, fmt.Errorf("parse template: %w", err)
	}

	return &Renderer{
		config:   config,
		template: tmpl,
		logger:   slog.Default().With("chart", config.ChartPath, "html", config.HTMLPath),
	}, nil
}

// replaceFile writes a new version of the file at `path` via a temporary file in the same directory, so that a
// failed write leaves the previous version untouched.
func replaceFile(path string, write func(w io.Writer) error) error {

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) // no-op once renamed

	err = write(tmp)
	if err != nil {
		tmp.Close()
		return err
	}
	err = tmp.Close()
	if err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	err = os.Chmod(tmp.Name(), 0o644)
	if err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}

	err = os.Rename(tmp.Name(), path)
	if err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
