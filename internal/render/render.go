// Package render writes partition layouts and split rows as text or JSON.
package render

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	cgerrors "github.com/arkilian/colgroup/internal/errors"
	"github.com/arkilian/colgroup/pkg/partition"
	"github.com/arkilian/colgroup/pkg/types"
)

// Renderer receives a partition's layout once and then every split row.
type Renderer interface {
	Layout(p *partition.Partition) error
	Row(rowIndex int, views []types.RowView) error
	Flush() error
}

// New returns the renderer for format ("text" or "json").
func New(format string, w io.Writer) (Renderer, error) {
	switch format {
	case "text", "":
		return NewText(w), nil
	case "json":
		return NewJSON(w), nil
	default:
		return nil, cgerrors.NewConfigError(fmt.Sprintf("unknown output format: %s", format))
	}
}

// Text renders an aligned table: one line per group in the layout, then one
// line per row with a column per group.
type Text struct {
	tw    *tabwriter.Writer
	names []string
}

// NewText creates a text renderer writing to w.
func NewText(w io.Writer) *Text {
	return &Text{tw: tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)}
}

func (t *Text) Layout(p *partition.Partition) error {
	headers, err := p.Headers()
	if err != nil && !isMissingHeaders(err) {
		return err
	}

	fmt.Fprintf(t.tw, "GROUP\tNAME\tRANGE\tCOLUMNS\n")
	t.names = t.names[:0]
	for g := range p.Groups() {
		t.names = append(t.names, g.Name())
		cols := "-"
		if headers != nil {
			cols = strings.Join(headers.Slice(g.Range()), ", ")
		}
		fmt.Fprintf(t.tw, "%d\t%s\t%s\t%s\n", g.GroupIndex(), g.Name(), g.Range(), cols)
	}
	fmt.Fprintln(t.tw)

	fmt.Fprint(t.tw, "ROW")
	for _, name := range t.names {
		fmt.Fprintf(t.tw, "\t%s", strings.ToUpper(name))
	}
	fmt.Fprintln(t.tw)
	return nil
}

func (t *Text) Row(rowIndex int, views []types.RowView) error {
	fmt.Fprintf(t.tw, "%d", rowIndex)
	for _, v := range views {
		fmt.Fprintf(t.tw, "\t%s", strings.Join(v.Fields(), " | "))
	}
	_, err := fmt.Fprintln(t.tw)
	return err
}

func (t *Text) Flush() error {
	return t.tw.Flush()
}

// JSON renders newline-delimited JSON: a layout object followed by one
// object per row.
type JSON struct {
	w     io.Writer
	opts  protojson.MarshalOptions
	names []string
}

// NewJSON creates a JSON renderer writing to w.
func NewJSON(w io.Writer) *JSON {
	return &JSON{w: w, opts: protojson.MarshalOptions{Multiline: false}}
}

func (j *JSON) Layout(p *partition.Partition) error {
	headers, err := p.Headers()
	if err != nil && !isMissingHeaders(err) {
		return err
	}

	groups := make([]interface{}, 0, p.GroupCount())
	j.names = j.names[:0]
	for g := range p.Groups() {
		j.names = append(j.names, g.Name())
		entry := map[string]interface{}{
			"index": g.GroupIndex(),
			"name":  g.Name(),
			"lower": g.Range().Lower(),
			"upper": g.Range().Upper(),
		}
		if headers != nil {
			entry["columns"] = stringList(headers.Slice(g.Range()))
		}
		groups = append(groups, entry)
	}

	return j.write(map[string]interface{}{
		"partition_id":  p.ID(),
		"fingerprint":   fmt.Sprintf("%016x", p.Fingerprint()),
		"total_columns": p.TotalColumns(),
		"has_headers":   headers != nil,
		"groups":        groups,
	})
}

func (j *JSON) Row(rowIndex int, views []types.RowView) error {
	groups := make([]interface{}, len(views))
	for i, v := range views {
		name := ""
		if v.GroupIndex() < len(j.names) {
			name = j.names[v.GroupIndex()]
		}
		groups[i] = map[string]interface{}{
			"index":  v.GroupIndex(),
			"name":   name,
			"lower":  v.Range().Lower(),
			"fields": stringList(v.Fields()),
		}
	}
	return j.write(map[string]interface{}{
		"row":    rowIndex,
		"groups": groups,
	})
}

func (j *JSON) Flush() error {
	return nil
}

func (j *JSON) write(m map[string]interface{}) error {
	s, err := structpb.NewStruct(m)
	if err != nil {
		return cgerrors.NewInternalError("failed to build json object", err)
	}
	data, err := j.opts.Marshal(s)
	if err != nil {
		return cgerrors.NewInternalError("failed to marshal json object", err)
	}
	data = append(data, '\n')
	_, err = j.w.Write(data)
	return err
}

func stringList(fields []string) []interface{} {
	out := make([]interface{}, len(fields))
	for i, f := range fields {
		out[i] = f
	}
	return out
}

func isMissingHeaders(err error) bool {
	return cgerrors.GetCode(err) == cgerrors.CodeMissingHeaders
}
