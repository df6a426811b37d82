// Package render turns a Router into vendor configuration text using
// templates laid out as <root>/<vendor>/<os>/<action>.txt.
package render

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/netip"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"text/template"

	"github.com/newtron-network/newtboot/pkg/model"
	"github.com/newtron-network/newtboot/pkg/util"
)

// Template actions
const (
	ActionHostname    = "add_hostname"
	ActionInterface   = "add_interface"
	ActionBGPNeighbor = "add_bgp_neighbor"
)

// Actions lists every action in push order
var Actions = []string{ActionHostname, ActionInterface, ActionBGPNeighbor}

// TemplateNotFoundError is returned when no template exists for a
// vendor/os/action combination
type TemplateNotFoundError struct {
	Path string
}

func (e *TemplateNotFoundError) Error() string {
	return fmt.Sprintf("template not found: %s", e.Path)
}

func (e *TemplateNotFoundError) Unwrap() error {
	return util.ErrTemplateNotFound
}

// Renderer renders templates from one root. Parsed templates are cached, so
// a Renderer is meant to live for a single run.
type Renderer struct {
	root string
	fsys fs.FS

	mu    sync.Mutex
	cache map[string]*template.Template
}

// New returns a renderer reading templates from the directory root
func New(root string) *Renderer {
	return NewFS(root, os.DirFS(root))
}

// NewFS returns a renderer reading templates from fsys; root is only used
// in error messages.
func NewFS(root string, fsys fs.FS) *Renderer {
	return &Renderer{
		root:  root,
		fsys:  fsys,
		cache: make(map[string]*template.Template),
	}
}

// Root returns the template root directory
func (r *Renderer) Root() string {
	return r.root
}

// TemplatePath returns the on-disk path of the template for action
func (r *Renderer) TemplatePath(router *model.Router, action string) string {
	return filepath.Join(r.root, router.Vendor, router.OS, action+".txt")
}

// Render executes the template for action with router as data
func (r *Renderer) Render(router *model.Router, action string) (string, error) {
	tmpl, err := r.load(router, action)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, router); err != nil {
		return "", fmt.Errorf("%w: %s: %w", util.ErrRender, r.TemplatePath(router, action), err)
	}
	return buf.String(), nil
}

// RenderBase renders hostname and interface config merged into one
// candidate.
func (r *Renderer) RenderBase(router *model.Router) (string, error) {
	var b strings.Builder
	for _, action := range []string{ActionHostname, ActionInterface} {
		out, err := r.Render(router, action)
		if err != nil {
			return "", err
		}
		b.WriteString(out)
		b.WriteString("\n")
	}
	return b.String(), nil
}

// RenderBGP renders the BGP neighbor candidate. An empty neighbor list
// still renders.
func (r *Renderer) RenderBGP(router *model.Router) (string, error) {
	out, err := r.Render(router, ActionBGPNeighbor)
	if err != nil {
		return "", err
	}
	return out + "\n", nil
}

func (r *Renderer) load(router *model.Router, action string) (*template.Template, error) {
	name := path.Join(router.Vendor, router.OS, action+".txt")

	r.mu.Lock()
	defer r.mu.Unlock()

	if tmpl, ok := r.cache[name]; ok {
		return tmpl, nil
	}

	data, err := fs.ReadFile(r.fsys, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrInvalid) {
			return nil, &TemplateNotFoundError{Path: r.TemplatePath(router, action)}
		}
		return nil, fmt.Errorf("read template %s: %w", r.TemplatePath(router, action), err)
	}

	tmpl, err := template.New(name).
		Option("missingkey=error").
		Funcs(templateFuncs).
		Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("%w: parse template %s: %w", util.ErrRender, r.TemplatePath(router, action), err)
	}
	r.cache[name] = tmpl
	return tmpl, nil
}

// templateFuncs are the helpers available to every template. Address
// helpers accept a netip.Prefix, an *model.Interface or a CIDR string.
// quote renders any value as a double-quoted JSON string literal, for JSON
// candidates and quoted CLI arguments.
var templateFuncs = template.FuncMap{
	"ip": func(v any) (string, error) {
		p, err := toPrefix(v)
		if err != nil {
			return "", err
		}
		return p.Addr().String(), nil
	},
	"netmask": func(v any) (string, error) {
		p, err := toPrefix(v)
		if err != nil {
			return "", err
		}
		return util.Netmask(p.Bits()).String(), nil
	},
	"prefixlen": func(v any) (int, error) {
		p, err := toPrefix(v)
		if err != nil {
			return 0, err
		}
		return p.Bits(), nil
	},
	"network": func(v any) (string, error) {
		p, err := toPrefix(v)
		if err != nil {
			return "", err
		}
		return p.Masked().Addr().String(), nil
	},
	"quote": quote,
	"lower": strings.ToLower,
	"upper": strings.ToUpper,
	"join": func(sep string, items any) (string, error) {
		switch items := items.(type) {
		case []string:
			return strings.Join(items, sep), nil
		case []netip.Addr:
			parts := make([]string, len(items))
			for i, a := range items {
				parts[i] = a.String()
			}
			return strings.Join(parts, sep), nil
		case []model.Neighbor:
			parts := make([]string, len(items))
			for i, n := range items {
				parts[i] = n.Address.String()
			}
			return strings.Join(parts, sep), nil
		default:
			return "", fmt.Errorf("join: unsupported type %T", items)
		}
	},
}

func quote(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(fmt.Sprint(v)); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

func toPrefix(v any) (netip.Prefix, error) {
	switch v := v.(type) {
	case netip.Prefix:
		return v, nil
	case *model.Interface:
		return v.Address, nil
	case string:
		return util.ParseIPv4Prefix(v)
	default:
		return netip.Prefix{}, fmt.Errorf("expected an IPv4 prefix, got %T", v)
	}
}
