package domain

import "context"

// WorkspaceRef identifies a created external resource.
type WorkspaceRef struct {
	ID    string `json:"id"`
	URL   string `json:"url,omitempty"`
	Title string `json:"title,omitempty"`
}

// DocElement is one block of a structured document body: either a
// paragraph or a table, never both.
type DocElement struct {
	Paragraph *DocParagraph `json:"paragraph,omitempty"`
	Table     *DocTable     `json:"table,omitempty"`
}

// DocParagraph is a run-structured paragraph.
type DocParagraph struct {
	Elements []DocTextRun `json:"elements,omitempty"`
}

// DocTextRun is one styled text run inside a paragraph.
type DocTextRun struct {
	Content string `json:"content,omitempty"`
}

// DocTable is a grid of cells, each holding nested elements.
type DocTable struct {
	Rows []DocTableRow `json:"tableRows,omitempty"`
}

type DocTableRow struct {
	Cells []DocTableCell `json:"tableCells,omitempty"`
}

type DocTableCell struct {
	Content []DocElement `json:"content,omitempty"`
}

// DocPayload is the structured document fetched from the workspace
// service.
type DocPayload struct {
	Title        string       `json:"title"`
	Body         []DocElement `json:"body,omitempty"`
	CreatedTime  string       `json:"createdTime,omitempty"`
	ModifiedTime string       `json:"modifiedTime,omitempty"`
}

// DriveFile is the metadata-plus-content view of one stored file.
type DriveFile struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	MimeType     string `json:"mimeType,omitempty"`
	Content      string `json:"content,omitempty"`
	CreatedTime  string `json:"createdTime,omitempty"`
	ModifiedTime string `json:"modifiedTime,omitempty"`
	WebViewLink  string `json:"webViewLink,omitempty"`
}

// WorkspaceRelay is the boundary to the external document/spreadsheet
// service. Every call is a single request/response; retries, if any, are
// the implementation's concern.
type WorkspaceRelay interface {
	CreateDocument(ctx context.Context, title, markdown string) (WorkspaceRef, error)
	CreateSpreadsheet(ctx context.Context, title string) (WorkspaceRef, error)
	FetchDocument(ctx context.Context, docRef string) (DocPayload, error)
	FetchSheet(ctx context.Context, sheetRef, sheetName string) ([][]string, error)
	FetchDriveFile(ctx context.Context, fileRef string) (DriveFile, error)
	WriteDocument(ctx context.Context, docRef, markdown string) error
	WriteSheet(ctx context.Context, sheetRef, sheetName string, rows [][]string) error
	ListSheetNames(ctx context.Context, sheetRef string) ([]string, error)
}
