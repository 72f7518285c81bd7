package processors_test

import (
	"context"
	"testing"

	"github.com/comfforts/logger"
	"github.com/stretchr/testify/require"

	"github.com/hankgalt/batch-export/pkg/domain"
	"github.com/hankgalt/batch-export/pkg/processors"
)

func TestEmailValidator(t *testing.T) {
	ctx := logger.WithLogger(context.Background(), logger.GetSlogLogger())
	p := processors.EmailValidator{}

	t.Run("accepts customer with email", func(t *testing.T) {
		in := domain.Customer{ID: 7, Name: "Ann", Email: "a@x.com"}
		out, err := p.Process(ctx, in)
		require.NoError(t, err)
		require.Equal(t, in, out)
	})

	t.Run("rejects empty email", func(t *testing.T) {
		_, err := p.Process(ctx, domain.Customer{ID: 8, Name: "Bob"})
		require.Error(t, err)
		require.True(t, domain.IsRejected(err))
		require.Equal(t, processors.ERR_EMPTY_EMAIL, err.Error())
	})

	t.Run("does not validate name", func(t *testing.T) {
		in := domain.Customer{ID: 9, Email: "c@x.com"}
		out, err := p.Process(context.Background(), in)
		require.NoError(t, err)
		require.Equal(t, in, out)
	})
}
