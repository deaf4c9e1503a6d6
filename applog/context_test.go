package applog

import (
	"context"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestGetContextFieldsEmpty(t *testing.T) {
	fields := getContextFields(context.Background())
	assert.Nil(t, fields)
}

func TestMergeContextFields(t *testing.T) {
	initial := []zap.Field{zap.String("a", "1"), zap.String("b", "2")}
	ctx := context.WithValue(context.Background(), logContextFieldKey{}, initial)

	merged := mergeContextFields(ctx, zap.String("c", "3"))
	expected := []zap.Field{zap.String("c", "3"), zap.String("a", "1"), zap.String("b", "2")}
	assert.True(t, reflect.DeepEqual(merged, expected))

	merged2 := mergeContextFields(ctx, zap.String("a", "new"))
	expected2 := []zap.Field{zap.String("a", "new"), zap.String("b", "2")}
	assert.True(t, reflect.DeepEqual(merged2, expected2))
}

func TestAddContextFields(t *testing.T) {
	ctx := AddContextFields(context.Background(), zap.String("a", "1"))
	assert.Len(t, getContextFields(ctx), 1)

	ctx = AddContextFields(ctx, zap.String("a", "2"), zap.String("b", "3"))
	fields := getContextFields(ctx)
	assert.Len(t, fields, 2)
}

func TestFromContext(t *testing.T) {
	ctx := AddContextFields(context.Background(), zap.String("sessionId", "abc"))
	logger := FromContext(ctx)
	assert.NotNil(t, logger)
}
