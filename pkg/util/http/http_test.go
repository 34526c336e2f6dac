package http

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type addTest struct {
	resp   http.Response
	output bool
}

var tests = []addTest{
	{http.Response{StatusCode: 200, Body: io.NopCloser(strings.NewReader(""))}, true},
	{http.Response{StatusCode: 102, Body: io.NopCloser(strings.NewReader(""))}, false},
	{http.Response{StatusCode: 301, Body: io.NopCloser(strings.NewReader(""))}, false},
	{http.Response{StatusCode: 404, Body: io.NopCloser(strings.NewReader("not found"))}, false},
	{http.Response{StatusCode: 500, Body: io.NopCloser(strings.NewReader(""))}, false},
}

func TestIsSuccessStatusCode(t *testing.T) {
	for _, v := range tests {
		res := isSuccessStatusCode(&v.resp)
		assert.Equal(t, res, v.output, fmt.Sprintf("output %t not equal to expected %t", res, v.output))
	}
}

func TestEnsureSuccessStatusCode(t *testing.T) {
	for _, v := range tests {
		err := EnsureSuccessStatusCode(&v.resp)
		assert.Equal(t, v.output, err == nil, fmt.Sprintf("output %t not equal to expected %t", err == nil, v.output))
	}
}

func TestEnsureSuccessStatusCodeIncludesBody(t *testing.T) {
	resp := http.Response{
		StatusCode: 400,
		Status:     "400 Bad Request",
		Body:       io.NopCloser(strings.NewReader("invalid project id")),
	}

	err := EnsureSuccessStatusCode(&resp)
	assert.ErrorContains(t, err, "invalid project id")
}
