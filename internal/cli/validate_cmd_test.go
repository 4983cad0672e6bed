package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/semaflow/semaflow/internal/planerr"
)

func TestPrintFindings_FormatsEachFindingOnOneLine(t *testing.T) {
	var buf bytes.Buffer
	findings := planerr.ValidationErrors{
		planerr.NewValidation(planerr.KindUnknownField, "no such field %q", "o.bogus").
			WithFlow("sales").WithTable("orders").WithField("o.bogus"),
		planerr.NewValidation(planerr.KindMixedDataSources, "joined tables span two data sources").
			WithFlow("sales"),
	}

	printFindings(&buf, findings)
	out := buf.String()

	assert.Contains(t, out, "[UnknownField] flow=\"sales\" table=\"orders\" field=\"o.bogus\": no such field \"o.bogus\"")
	assert.Contains(t, out, "[MixedDataSources] flow=\"sales\" table=\"\" field=\"\": joined tables span two data sources")
}

func TestPrintFindings_Empty(t *testing.T) {
	var buf bytes.Buffer
	printFindings(&buf, nil)
	assert.Empty(t, buf.String())
}
