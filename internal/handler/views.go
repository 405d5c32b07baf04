package handler

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/event-hub-storefront/internal/model"
	"github.com/Shivanand-hulikatti/event-hub-storefront/internal/notify"
	"github.com/Shivanand-hulikatti/event-hub-storefront/internal/service"
	"github.com/Shivanand-hulikatti/event-hub-storefront/internal/validate"
	"github.com/yuin/goldmark"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFS embed.FS

const layoutFile = "templates/layout.html"

// page is what every view renders from. User and Notes are filled in by
// render.
type page struct {
	Title  string
	User   *model.User
	Notes  []notify.Notification
	Errors validate.FieldErrors
	Data   any
}

type views struct {
	pages map[string]*template.Template
}

// parseViews parses one template set per page, each layered on the layout.
func parseViews(funcs template.FuncMap) (*views, error) {
	base, err := template.New("base").Funcs(funcs).ParseFS(templateFS, layoutFile)
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}
	files, err := templateFS.ReadDir("templates")
	if err != nil {
		return nil, fmt.Errorf("read templates: %w", err)
	}
	v := &views{pages: make(map[string]*template.Template)}
	for _, f := range files {
		file := path.Join("templates", f.Name())
		if file == layoutFile {
			continue
		}
		t, err := template.Must(base.Clone()).ParseFS(templateFS, file)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", f.Name(), err)
		}
		v.pages[strings.TrimSuffix(f.Name(), ".html")] = t
	}
	return v, nil
}

func (h *Handler) funcs() template.FuncMap {
	md := goldmark.New()
	return template.FuncMap{
		"markdown": func(src string) template.HTML {
			var buf bytes.Buffer
			if err := md.Convert([]byte(src), &buf); err != nil {
				h.logger.Warn("render markdown", zap.Error(err))
				return template.HTML(template.HTMLEscapeString(src))
			}
			// goldmark drops raw HTML unless WithUnsafe is set.
			return template.HTML(buf.String())
		},
		"date": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("Jan 2, 2006")
		},
		"price": func(p float64) string {
			return strconv.FormatFloat(p, 'f', -1, 64) + " LE"
		},
		"seats": func(e model.Event) string {
			switch n := e.AvailableSeats(); n {
			case 0:
				return "Sold out"
			case 1:
				return "1 seat left"
			default:
				return strconv.Itoa(n) + " seats left"
			}
		},
		"image": func(e model.Event) string {
			return e.ImageURL()
		},
		"title": func(s string) string {
			if s == "" {
				return s
			}
			return strings.ToUpper(s[:1]) + s[1:]
		},
		"control": func(e model.Event) service.ControlState {
			return h.d.Flow.Control(e)
		},
	}
}

// render executes the named page into a buffer and writes it with status.
// Pending notifications are handed to the page and leave the queue.
func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, name string, p page) {
	t, ok := h.views.pages[name]
	if !ok {
		h.logger.Error("unknown view", zap.String("view", name))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	p.User = h.d.Session.User()
	p.Notes = h.d.Notes.Drain()

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", p); err != nil {
		h.logger.Error("render view", zap.String("view", name), zap.String("path", r.URL.Path), zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
