// Package ooxml reads the text layer of Office Open XML packages.
package ooxml

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

// Namespaces of the text-bearing parts.
const (
	NSWordprocessingML = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	NSDrawingML        = "http://schemas.openxmlformats.org/drawingml/2006/main"
	NSRelDoc           = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
)

// Well-known part names.
const (
	DocumentPart     = "word/document.xml"
	PresentationPart = "ppt/presentation.xml"
)

// ErrPartNotFound is returned when a required part is missing from the package.
var ErrPartNotFound = errors.New("part not found")

// Relationship represents an OOXML relationship.
type Relationship struct {
	ID         string `xml:"Id,attr"`
	Type       string `xml:"Type,attr"`
	Target     string `xml:"Target,attr"`
	TargetMode string `xml:"TargetMode,attr"`
}

type relationships struct {
	XMLName       xml.Name       `xml:"Relationships"`
	Relationships []Relationship `xml:"Relationship"`
}

// ParseRelationships parses the .rels part belonging to partPath. A missing
// .rels part yields an empty map.
func ParseRelationships(zr *zip.Reader, partPath string) (map[string]Relationship, error) {
	f := findFile(zr, RelsPathFor(partPath))
	if f == nil {
		return map[string]Relationship{}, nil
	}
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var rels relationships
	if err := xml.NewDecoder(rc).Decode(&rels); err != nil {
		return nil, fmt.Errorf("decode relationships: %w", err)
	}
	result := make(map[string]Relationship, len(rels.Relationships))
	for _, rel := range rels.Relationships {
		result[rel.ID] = rel
	}
	return result, nil
}

// RelsPathFor returns the .rels path for a given part.
func RelsPathFor(partPath string) string {
	dir := path.Dir(partPath)
	base := path.Base(partPath)
	if dir == "." {
		return "_rels/" + base + ".rels"
	}
	return dir + "/_rels/" + base + ".rels"
}

// ResolveTarget resolves a relative target path against a base part.
func ResolveTarget(basePath, target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(target, "/")
	}
	return path.Join(path.Dir(basePath), target)
}

// DocumentText returns the text of a wordprocessing package, one line per
// paragraph.
func DocumentText(zr *zip.Reader) (string, error) {
	f := findFile(zr, DocumentPart)
	if f == nil {
		return "", fmt.Errorf("%s: %w", DocumentPart, ErrPartNotFound)
	}
	return partText(f, NSWordprocessingML)
}

// SlideTexts returns the text of each slide of a presentation package, in
// presentation order.
func SlideTexts(zr *zip.Reader) ([]string, error) {
	slides, err := slideOrder(zr)
	if err != nil {
		return nil, err
	}
	texts := make([]string, 0, len(slides))
	for _, name := range slides {
		f := findFile(zr, name)
		if f == nil {
			return nil, fmt.Errorf("%s: %w", name, ErrPartNotFound)
		}
		text, err := partText(f, NSDrawingML)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		texts = append(texts, text)
	}
	return texts, nil
}

type presentation struct {
	SlideIDs []struct {
		RID string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships id,attr"`
	} `xml:"sldIdLst>sldId"`
}

// slideOrder resolves the slide list of ppt/presentation.xml through its
// relationships.
func slideOrder(zr *zip.Reader) ([]string, error) {
	f := findFile(zr, PresentationPart)
	if f == nil {
		return nil, fmt.Errorf("%s: %w", PresentationPart, ErrPartNotFound)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var p presentation
	if err := xml.NewDecoder(rc).Decode(&p); err != nil {
		return nil, fmt.Errorf("decode presentation: %w", err)
	}
	rels, err := ParseRelationships(zr, PresentationPart)
	if err != nil {
		return nil, err
	}

	slides := make([]string, 0, len(p.SlideIDs))
	for _, id := range p.SlideIDs {
		rel, ok := rels[id.RID]
		if !ok {
			continue
		}
		slides = append(slides, ResolveTarget(PresentationPart, rel.Target))
	}
	return slides, nil
}

// partText streams an XML part and collects the character data of t
// elements in namespace ns. Paragraphs end lines; tab and br elements
// become a tab and a newline.
func partText(f *zip.File, ns string) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	var b strings.Builder
	inText := false
	dec := xml.NewDecoder(rc)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("decode %s: %w", f.Name, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Space != ns {
				continue
			}
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				b.WriteByte('\t')
			case "br", "cr":
				b.WriteByte('\n')
			}
		case xml.EndElement:
			if t.Name.Space != ns {
				continue
			}
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				b.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				b.Write(t)
			}
		}
	}
	return b.String(), nil
}

func findFile(zr *zip.Reader, name string) *zip.File {
	for _, f := range zr.File {
		if f.Name == name {
			return f
		}
	}
	return nil
}
