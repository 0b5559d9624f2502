// Package acta renders delivery actas, the signed record of the equipment
// handed to a collaborator, and stores them as HTML files.
package acta

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/crucial707/asset-custody/internal/rut"
	"github.com/google/uuid"
)

//go:embed templates/acta.html
var templateFS embed.FS

var page = template.Must(template.ParseFS(templateFS, "templates/acta.html"))

// Product types. Refurbished equipment is marked REAC on each line.
const (
	ProductNew         = "NUEVO"
	ProductRefurbished = "REACONDICIONADO"
)

const (
	defaultDescription  = "Entrega de equipamiento tecnológico para el desarrollo de sus funciones laborales."
	defaultObservations = "Ninguna"
	maxNameAttempts     = 1000
)

// Item is one line of equipment on the acta.
type Item struct {
	Brand     string
	Model     string
	Name      string
	Phone     string
	Serial    string
	Condition string
}

// Request is everything printed on an acta.
type Request struct {
	CollaboratorID int
	Name           string
	RUT            string
	Position       string
	Area           string
	Date           time.Time
	CostCenter     string
	Description    string
	Observations   string
	ProductType    string
	Items          []Item
}

// Document is a rendered and stored acta.
type Document struct {
	Folio       string
	Path        string
	FileName    string
	Description string
}

// Renderer writes actas under Dir, creating it on first use.
type Renderer struct {
	Dir string
}

type view struct {
	Folio, Name, RUT, Position, Area, Date, CostCenter, Description, Observations string
	Items                                                                         []viewItem
}

type viewItem struct {
	Equipment, Phone, Condition, Serial string
}

// Render fills the template for req.
func Render(folio string, req Request) ([]byte, string, error) {
	if len(req.Items) == 0 {
		return nil, "", errors.New("acta needs at least one item")
	}
	v := view{
		Folio:        folio,
		Name:         req.Name,
		RUT:          req.RUT,
		Position:     req.Position,
		Area:         req.Area,
		Date:         req.Date.Format("02-01-2006"),
		CostCenter:   req.CostCenter,
		Description:  strings.TrimSpace(req.Description),
		Observations: strings.TrimSpace(req.Observations),
	}
	if v.Description == "" {
		v.Description = defaultDescription
	}
	if v.Observations == "" {
		v.Observations = defaultObservations
	}

	condition := ProductNew
	if strings.EqualFold(strings.TrimSpace(req.ProductType), ProductRefurbished) {
		condition = "REAC"
	}
	for _, it := range req.Items {
		equipment := strings.TrimSpace(it.Brand + " " + it.Model)
		if equipment == "" {
			equipment = it.Name
		}
		if equipment == "" {
			equipment = "Equipo"
		}
		c := it.Condition
		if c == "" {
			c = condition
		}
		v.Items = append(v.Items, viewItem{Equipment: equipment, Phone: it.Phone, Condition: c, Serial: it.Serial})
	}

	var buf bytes.Buffer
	if err := page.Execute(&buf, v); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), v.Description, nil
}

// BaseName is <rut without check digit>_<DDMMYYYY>, falling back to the
// collaborator id when the RUT is empty.
func BaseName(req Request) string {
	prefix := rut.BodyWithoutDV(req.RUT)
	if prefix == "" {
		prefix = fmt.Sprint(req.CollaboratorID)
	}
	return prefix + "_" + req.Date.Format("02012006")
}

// Generate renders req and writes it under a file name not yet taken in Dir,
// adding (1), (2)... to the base name as needed.
func (r *Renderer) Generate(req Request) (Document, error) {
	folio := uuid.NewString()
	body, description, err := Render(folio, req)
	if err != nil {
		return Document{}, err
	}

	if err := os.MkdirAll(r.Dir, 0o750); err != nil {
		return Document{}, fmt.Errorf("create acta dir: %w", err)
	}

	base := BaseName(req)
	for i := 0; i < maxNameAttempts; i++ {
		name := base
		if i > 0 {
			name = fmt.Sprintf("%s(%d)", base, i)
		}
		name += ".html"
		path := filepath.Join(r.Dir, name)

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return Document{}, fmt.Errorf("create acta file: %w", err)
		}
		if _, err := f.Write(body); err != nil {
			f.Close()
			os.Remove(path)
			return Document{}, fmt.Errorf("write acta file: %w", err)
		}
		if err := f.Close(); err != nil {
			return Document{}, fmt.Errorf("close acta file: %w", err)
		}
		return Document{Folio: folio, Path: path, FileName: name, Description: description}, nil
	}
	return Document{}, fmt.Errorf("no free file name for %s", base)
}
