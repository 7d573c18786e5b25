package cypher

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateSuccess(t *testing.T) {
	v := NewValidator(func(q string) (bool, string) { return true, "" })

	res := v.Validate("MATCH (n) RETURN n.name")
	assert.True(t, res.Valid)
	assert.Empty(t, res.Message)
	assert.Equal(t, ClassNone, res.Class)
}

func TestValidateFailure(t *testing.T) {
	v := NewValidator(func(q string) (bool, string) {
		return false, "Parser exception: unexpected token RETRUN"
	})

	res := v.Validate("RETRUN 1")
	assert.False(t, res.Valid)
	assert.Contains(t, res.Message, "unexpected token")
	assert.Equal(t, ClassSyntax, res.Class)
}

func TestValidateFailureWithoutMessage(t *testing.T) {
	v := NewValidator(func(q string) (bool, string) { return false, "" })

	res := v.Validate("RETURN 1")
	assert.False(t, res.Valid)
	assert.NotEmpty(t, res.Message, "a rejection must carry some message")
}

func TestClassify(t *testing.T) {
	cases := []struct {
		msg  string
		want ErrorClass
	}{
		{"", ClassNone},
		{"Parser exception: Invalid input 'RETRUN'", ClassSyntax},
		{"missing semicolon at end of statement", ClassSyntax},
		{"Unexpected end of input", ClassSyntax},
		{"Function apoc.coll.sort is not defined", ClassUnsupported},
		{"unknown function: to_titlecase", ClassUnsupported},
		{"operation not supported on this backend", ClassUnsupported},
		{"Buffer pool exhausted", ClassEngine},
		{"connection reset by peer", ClassEngine},
	}
	for _, tc := range cases {
		t.Run(tc.msg, func(t *testing.T) {
			assert.Equal(t, tc.want, Classify(tc.msg))
		})
	}
}
