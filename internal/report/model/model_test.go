package model

import (
	"errors"
	"net/http"
	"testing"

	errx "github.com/opsdesk/reportgen/internal/core/error"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuccess_TrimsOnly(t *testing.T) {
	r := Success("\n  [1. 점검 개요]\n본문  \n\t")
	assert.True(t, r.OK())
	assert.Equal(t, "[1. 점검 개요]\n본문", r.Text)
}

func TestFailed_PreservesDetail(t *testing.T) {
	r := Failed(errx.Generation(errors.New("rpc error: code = ResourceExhausted")))
	require.False(t, r.OK())
	assert.Equal(t, errx.KindGeneration, r.Failure.Kind)
	assert.Equal(t, errx.GenerationErrorMessage, r.Failure.Message)
	assert.Equal(t, "rpc error: code = ResourceExhausted", r.Failure.Detail)
	assert.Equal(t, http.StatusBadGateway, r.Failure.Status)

	r = Failed(errors.New("dial tcp: i/o timeout"))
	require.False(t, r.OK())
	assert.Equal(t, errx.KindGeneration, r.Failure.Kind)
	assert.Equal(t, "dial tcp: i/o timeout", r.Failure.Detail)
}

func TestInlineImage_DataURL(t *testing.T) {
	img := InlineImage{MIMEType: "image/jpeg", Data: []byte{0xff, 0xd8, 0xff}}
	assert.Equal(t, "data:image/jpeg;base64,/9j/", img.DataURL())
}

func TestPromptPair_Parts(t *testing.T) {
	p := PromptPair{Content: []ContentPart{
		{Kind: ContentText, Text: "- 위치: 미상"},
		{Kind: ContentImage, Image: &InlineImage{MIMEType: "image/jpeg", Data: []byte{1}}},
	}}
	assert.Equal(t, "- 위치: 미상", p.Text())
	assert.True(t, p.HasImage())
	assert.Len(t, p.Images(), 1)
}

func TestComputeCost(t *testing.T) {
	in, out, total := ComputeCost(&Usage{PromptTokens: 1_000_000, CompletionTokens: 2_000_000}, ResolvePricing("gemini-2.5-flash"))
	assert.InDelta(t, 0.30, in, 1e-9)
	assert.InDelta(t, 5.00, out, 1e-9)
	assert.InDelta(t, 5.30, total, 1e-9)

	_, _, total = ComputeCost(nil, ResolvePricing("gemini-2.5-flash"))
	assert.Zero(t, total)
	assert.Equal(t, Pricing{}, ResolvePricing("unknown"))
}
