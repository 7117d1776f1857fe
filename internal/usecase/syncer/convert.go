package syncer

import (
	"strings"

	"canvasd/internal/domain"
)

// ExtractDocText flattens a structured document body to plain text.
// Paragraph runs concatenate, table rows join their cells with " | ",
// and non-empty blocks join with blank lines.
func ExtractDocText(doc domain.DocPayload) string {
	var parts []string
	for _, el := range doc.Body {
		switch {
		case el.Paragraph != nil:
			text := paragraphText(el.Paragraph)
			if strings.TrimSpace(text) != "" {
				parts = append(parts, strings.TrimSpace(text))
			}
		case el.Table != nil:
			for _, row := range el.Table.Rows {
				var cells []string
				for _, cell := range row.Cells {
					text := cellText(cell)
					if strings.TrimSpace(text) != "" {
						cells = append(cells, strings.TrimSpace(text))
					}
				}
				if len(cells) > 0 {
					parts = append(parts, strings.Join(cells, " | "))
				}
			}
		}
	}
	return strings.Join(parts, "\n\n")
}

func paragraphText(p *domain.DocParagraph) string {
	var b strings.Builder
	for _, run := range p.Elements {
		b.WriteString(run.Content)
	}
	return b.String()
}

func cellText(c domain.DocTableCell) string {
	var b strings.Builder
	for _, el := range c.Content {
		if el.Paragraph != nil {
			b.WriteString(paragraphText(el.Paragraph))
		}
	}
	return b.String()
}

// DocCanvas converts a fetched document into a replacement canvas: one
// document item carrying the full text, titled after the document.
func DocCanvas(doc domain.DocPayload, docRef string) domain.CanvasState {
	title := doc.Title
	if title == "" {
		title = "Untitled Document"
	}
	text := ExtractDocText(doc)

	item := domain.Item{
		ID:   domain.FormatItemID(1),
		Type: domain.ItemTypeDocument,
		Name: title,
		Data: domain.DocumentData{
			Content:      text,
			CreatedAt:    doc.CreatedTime,
			ModifiedAt:   doc.ModifiedTime,
			WordCount:    domain.CountWords(text),
			GoogleDocsID: docRef,
		},
	}
	return domain.CanvasState{
		Items:        []domain.Item{item},
		GlobalTitle:  "Canvas: " + title,
		ItemsCreated: 1,
	}
}

// DocItems converts a fetched document into importable items. With
// sectioned true the text splits into one item per detected section,
// otherwise the whole document becomes a single item.
func DocItems(doc domain.DocPayload, docRef string, sectioned bool) []domain.Item {
	if !sectioned {
		state := DocCanvas(doc, docRef)
		return state.Items
	}

	text := ExtractDocText(doc)
	sections := ParseSections(text)
	items := make([]domain.Item, 0, len(sections))
	for i, sec := range sections {
		content := strings.Join(sec.Lines, "\n")
		items = append(items, domain.Item{
			ID:   domain.FormatItemID(i + 1),
			Type: domain.ItemTypeDocument,
			Name: sec.Heading,
			Data: domain.DocumentData{
				Content:      content,
				CreatedAt:    doc.CreatedTime,
				ModifiedAt:   doc.ModifiedTime,
				WordCount:    domain.CountWords(content),
				GoogleDocsID: docRef,
			},
		})
	}
	return items
}

// SheetItems converts fetched sheet rows into items, one per data row.
// A leading header row matching the export header is skipped. Short rows
// read as empty trailing columns.
func SheetItems(rows [][]string) []domain.Item {
	var items []domain.Item
	for i, row := range rows {
		if i == 0 && isHeaderRow(row) {
			continue
		}
		name := col(row, 2)
		content := col(row, 4)
		if name == "" && content == "" {
			continue
		}
		typ := domain.ItemType(col(row, 1))
		if typ == "" {
			typ = domain.ItemTypeDocument
		}
		item := domain.Item{
			ID:       domain.FormatItemID(len(items) + 1),
			Type:     typ,
			Name:     name,
			Subtitle: col(row, 3),
		}
		if typ == domain.ItemTypeDocument {
			item.Data = domain.DocumentData{
				Content:   content,
				WordCount: domain.CountWords(content),
			}
		}
		items = append(items, item)
	}
	return items
}

func isHeaderRow(row []string) bool {
	return len(row) > 0 && strings.EqualFold(strings.TrimSpace(row[0]), "id")
}

func col(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

// DriveItem converts a fetched drive file into a document item with a
// subtitle derived from the file's type.
func DriveItem(file domain.DriveFile) domain.Item {
	return domain.Item{
		ID:       domain.FormatItemID(1),
		Type:     domain.ItemTypeDocument,
		Name:     file.Name,
		Subtitle: driveSubtitle(file.MimeType),
		Data: domain.DocumentData{
			Content:             file.Content,
			CreatedAt:           file.CreatedTime,
			ModifiedAt:          file.ModifiedTime,
			WordCount:           domain.CountWords(file.Content),
			GoogleDriveID:       file.ID,
			GoogleDriveMimeType: file.MimeType,
			GoogleDriveLink:     file.WebViewLink,
		},
	}
}

func driveSubtitle(mimeType string) string {
	switch {
	case mimeType == "application/vnd.google-apps.document":
		return "Google Docs"
	case mimeType == "application/vnd.google-apps.spreadsheet":
		return "Google Sheets"
	case strings.HasPrefix(mimeType, "text/"):
		return "Text File (" + upperSubtype(mimeType) + ")"
	case mimeType == "":
		return ""
	default:
		return "Drive File (" + upperSubtype(mimeType) + ")"
	}
}

func upperSubtype(mimeType string) string {
	if i := strings.LastIndex(mimeType, "/"); i >= 0 {
		mimeType = mimeType[i+1:]
	}
	return strings.ToUpper(mimeType)
}

// Section is one titled slice of an imported plain-text document.
type Section struct {
	Heading string
	Lines   []string
}

// ParseSections splits plain text into titled sections on heading
// heuristics: a short line that is all-caps, ends with a colon, or starts
// with a markdown heading marker or a Chapter/Section prefix. Body lines
// before the first heading fall into an "Introduction" section; text with
// no headings at all becomes a single "Document Content" section.
func ParseSections(text string) []Section {
	var sections []Section
	var current *Section

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if isHeadingLine(line) {
			if current != nil {
				sections = append(sections, *current)
			}
			heading := strings.TrimSpace(strings.TrimLeft(strings.TrimRight(line, ":"), "#"))
			current = &Section{Heading: heading}
			continue
		}

		if current == nil {
			current = &Section{Heading: "Introduction"}
		}
		current.Lines = append(current.Lines, line)
	}
	if current != nil {
		sections = append(sections, *current)
	}

	if len(sections) == 0 && strings.TrimSpace(text) != "" {
		sections = append(sections, Section{
			Heading: "Document Content",
			Lines:   []string{strings.TrimSpace(text)},
		})
	}
	return sections
}

func isHeadingLine(line string) bool {
	if len(line) >= 100 {
		return false
	}
	if line == strings.ToUpper(line) && strings.ToLower(line) != line {
		return true
	}
	if strings.HasSuffix(line, ":") {
		return true
	}
	for _, prefix := range []string{"#", "Chapter", "Section"} {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}
