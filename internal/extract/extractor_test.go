package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type backendCall struct {
	strategy Strategy
	pages    []int
}

type fakeBackend struct {
	fast     []Element
	hires    []Element
	fastErr  error
	hiresErr error
	calls    []backendCall
}

func (f *fakeBackend) ExtractRaw(_ context.Context, _ []byte, strategy Strategy, pages []int) ([]Element, error) {
	f.calls = append(f.calls, backendCall{strategy: strategy, pages: pages})
	if strategy == StrategyFast {
		return f.fast, f.fastErr
	}
	if f.hiresErr != nil {
		return nil, f.hiresErr
	}
	want := pageFilter(pages)
	var out []Element
	for _, el := range f.hires {
		if want == nil || want[el.Page] {
			out = append(out, el)
		}
	}
	return out, nil
}

// longDocument has eight pages of prose with a table reference on page 4.
func longDocument() []Element {
	var out []Element
	for page := 1; page <= 8; page++ {
		out = append(out, Element{Text: prose, Page: page, Category: CategoryNarrativeText})
		if page == 4 {
			out = append(out, Element{Text: tableMarker, Page: page, Category: CategoryNarrativeText})
		} else {
			out = append(out, Element{Text: prose, Page: page, Category: CategoryNarrativeText})
		}
	}
	return out
}

func hiresPage4() []Element {
	return []Element{
		{Text: tableMarker, Page: 4, Category: CategoryNarrativeText},
		{Text: "participants", Page: 4, Category: CategoryTable, HTMLTable: buildTable(3)},
	}
}

func TestExtract_SelectedPages(t *testing.T) {
	backend := &fakeBackend{fast: longDocument(), hires: hiresPage4()}

	out, err := NewExtractor(backend, nil, nil).Extract(context.Background(), []byte("%PDF"), "report.pdf")
	require.NoError(t, err)

	require.Len(t, backend.calls, 2)
	assert.Equal(t, StrategyHiRes, backend.calls[1].strategy)
	assert.Equal(t, []int{4}, backend.calls[1].pages)

	assert.Equal(t, 1, out.TableCount)
	require.Len(t, out.Tables, 1)
	assert.Equal(t, 4, out.Tables[0].Page)
	assert.Len(t, out.Texts, 15, "page 4 is replaced by its single hi-res text")
}

func TestExtract_NoQualifyingPagesSkipsHiRes(t *testing.T) {
	fast := longDocument()
	for i := range fast {
		fast[i].Text = prose
	}
	backend := &fakeBackend{fast: fast}

	out, err := NewExtractor(backend, nil, nil).Extract(context.Background(), nil, "plain.pdf")
	require.NoError(t, err)
	assert.Len(t, backend.calls, 1)
	assert.Len(t, out.Texts, 16)
}

func TestExtract_ShortDocumentRunsFullHiRes(t *testing.T) {
	backend := &fakeBackend{
		fast:  []Element{{Text: prose, Page: 1}},
		hires: append([]Element{{Text: prose, Page: 1}}, hiresPage4()...),
	}

	out, err := NewExtractor(backend, nil, nil).Extract(context.Background(), nil, "short.pdf")
	require.NoError(t, err)
	require.Len(t, backend.calls, 2)
	assert.Nil(t, backend.calls[1].pages)
	assert.Equal(t, 1, out.TableCount)
}

func TestExtract_HiResFailureDegrades(t *testing.T) {
	backend := &fakeBackend{fast: longDocument(), hiresErr: errors.New("sidecar down")}

	out, err := NewExtractor(backend, nil, nil).Extract(context.Background(), nil, "report.pdf")
	require.NoError(t, err)
	assert.Len(t, out.Texts, 16)
	assert.Empty(t, out.Tables)
}

func TestExtract_FailsWithoutContent(t *testing.T) {
	backend := &fakeBackend{fastErr: errors.New("bad pdf"), hiresErr: errors.New("bad pdf")}

	_, err := NewExtractor(backend, nil, nil).Extract(context.Background(), nil, "broken.pdf")
	assert.ErrorIs(t, err, ErrExtraction)

	empty := &fakeBackend{}
	_, err = NewExtractor(empty, nil, nil).Extract(context.Background(), nil, "blank.pdf")
	assert.ErrorIs(t, err, ErrExtraction)
}

func TestRoutingBackend(t *testing.T) {
	fast := &fakeBackend{fast: []Element{{Text: "fast"}}}
	r := &RoutingBackend{Fast: fast}

	els, err := r.ExtractRaw(context.Background(), nil, StrategyFast, nil)
	require.NoError(t, err)
	assert.Equal(t, "fast", els[0].Text)

	_, err = r.ExtractRaw(context.Background(), nil, StrategyHiRes, nil)
	assert.ErrorIs(t, err, ErrUnsupportedStrategy)
}
