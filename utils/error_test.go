package utils

import (
	"errors"
	"io"
	"testing"
)

func TestErrInErr(t *testing.T) {
	e := ErrInErr{ErrDesc: "read header", ErrDetail: io.ErrUnexpectedEOF, Data: 7}

	if !errors.Is(e, io.ErrUnexpectedEOF) {
		t.Log("errors.Is should see through ErrInErr")
		t.FailNow()
	}
	if e.Error() != "read header : unexpected EOF, Data: 7" {
		t.Log("got", e.Error())
		t.FailNow()
	}

	plain := ErrInErr{ErrDesc: "only desc"}
	if plain.Error() != "only desc" {
		t.Log("got", plain.Error())
		t.FailNow()
	}

	var wrapped error = ErrInErr{ErrDesc: "outer", ErrDetail: ErrInErr{ErrDesc: "inner", ErrDetail: ErrNilParameter}}
	if !errors.Is(wrapped, ErrNilParameter) {
		t.Log("nested ErrInErr should unwrap")
		t.FailNow()
	}
}
