package confirm

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	hverrors "github.com/hibernate/hvrelease/errors"
)

func TestPrompt_Confirm(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "lowercase y", input: "y\n"},
		{name: "surrounding whitespace", input: "  y \r\n"},
		{name: "y without newline", input: "y"},
		{name: "uppercase", input: "Y\n", wantErr: true},
		{name: "yes", input: "yes\n", wantErr: true},
		{name: "no", input: "n\n", wantErr: true},
		{name: "empty line", input: "\n", wantErr: true},
		{name: "end of input", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			p := NewPrompt(strings.NewReader(tt.input), &out)

			err := p.Confirm(context.Background(), "Upload 8.0.1.Final?")
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, hverrors.IsAborted(err))
			} else {
				require.NoError(t, err)
			}
			assert.Contains(t, out.String(), "Upload 8.0.1.Final?")
		})
	}
}

func TestPrompt_ReadsOneLinePerQuestion(t *testing.T) {
	p := NewPrompt(strings.NewReader("y\nn\n"), &bytes.Buffer{})

	assert.NoError(t, p.Confirm(context.Background(), "first?"))
	assert.True(t, hverrors.IsAborted(p.Confirm(context.Background(), "second?")))
}

func TestPrompt_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	err := NewPrompt(strings.NewReader("y\n"), &out).Confirm(ctx, "upload?")
	assert.True(t, hverrors.IsAborted(err))
	assert.Empty(t, out.String())
}

func TestStaticConfirmers(t *testing.T) {
	ctx := context.Background()
	assert.NoError(t, Always{}.Confirm(ctx, "q"))
	assert.True(t, hverrors.IsAborted(Never{}.Confirm(ctx, "q")))

	var asked []string
	f := Func(func(_ context.Context, q string) error {
		asked = append(asked, q)
		return nil
	})
	assert.NoError(t, f.Confirm(ctx, "q1"))
	assert.Equal(t, []string{"q1"}, asked)
}
