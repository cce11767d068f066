package audit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appctx "bizdesk/internal/core/context"
	"bizdesk/internal/core/entity"
)

func TestEnrichCreatedBy(t *testing.T) {
	doc := entity.NewDocument()
	ctx := appctx.WithOperator(context.Background(), "maria")

	require.NoError(t, EnrichCreatedBy(ctx, &doc))
	assert.Equal(t, "maria", doc.CreatedBy)
	assert.Equal(t, "maria", doc.UpdatedBy)
}

func TestEnrichCreatedBy_NoOperator(t *testing.T) {
	doc := entity.NewDocument()

	require.NoError(t, EnrichCreatedBy(context.Background(), &doc))
	assert.Empty(t, doc.CreatedBy)
}

func TestEnrichUpdatedBy(t *testing.T) {
	doc := entity.NewDocument()
	doc.CreatedBy = "maria"
	ctx := appctx.WithOperator(context.Background(), "joao")

	require.NoError(t, EnrichUpdatedBy(ctx, &doc))
	assert.Equal(t, "maria", doc.CreatedBy)
	assert.Equal(t, "joao", doc.UpdatedBy)
}
