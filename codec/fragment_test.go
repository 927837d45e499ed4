package codec

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/pithecene-io/holonet/types"
)

const r2d2Films = "A New Hope, The Empire Strikes Back, Return of the Jedi"

func TestDecodeFragment_JSON(t *testing.T) {
	payload := []byte(`{"films":"` + r2d2Films + `","resultCount":1,"name":"R2-D2","page":1}`)

	f, err := DecodeFragment(JSON, payload)
	if err != nil {
		t.Fatalf("DecodeFragment failed: %v", err)
	}
	if f.Page != 1 || f.ResultCount != 1 {
		t.Errorf("page/resultCount = %d/%d, want 1/1", f.Page, f.ResultCount)
	}
	if f.Name != "R2-D2" {
		t.Errorf("Name = %q, want R2-D2", f.Name)
	}
	if f.Films != r2d2Films {
		t.Errorf("Films = %q, want %q", f.Films, r2d2Films)
	}
}

func TestDecodeFragment_JSONIgnoresUnknownFields(t *testing.T) {
	payload := []byte(`{"page":2,"resultCount":3,"name":"C-3PO","films":"x","delay":500}`)

	f, err := DecodeFragment(JSON, payload)
	if err != nil {
		t.Fatalf("DecodeFragment failed: %v", err)
	}
	if f.Page != 2 {
		t.Errorf("Page = %d, want 2", f.Page)
	}
}

func TestDecodeFragment_RemoteError(t *testing.T) {
	payload := []byte(`{"page":-1,"resultCount":-1,"error":"No valid matches retrieved for query 'zzz'"}`)

	f, err := DecodeFragment(JSON, payload)
	if err != nil {
		t.Fatalf("DecodeFragment failed: %v", err)
	}
	if !f.IsError() {
		t.Fatal("expected error fragment")
	}
	if !strings.Contains(f.Error, "zzz") {
		t.Errorf("Error = %q, want it to mention the query", f.Error)
	}
}

func TestDecodeFragment_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		kind    DecodeErrorKind
	}{
		{"empty", "", DecodeErrorSyntax},
		{"whitespace", "   ", DecodeErrorSyntax},
		{"truncated", `{"page":1,`, DecodeErrorSyntax},
		{"not json", "hello there", DecodeErrorSyntax},
		{"array", `[{"page":1}]`, DecodeErrorSyntax},
		{"string", `"{\"page\":1}"`, DecodeErrorSyntax},
		{"null", `null`, DecodeErrorSyntax},
		{"page as string", `{"page":"one","resultCount":1}`, DecodeErrorShape},
		{"name as number", `{"page":1,"resultCount":1,"name":42}`, DecodeErrorShape},
		{"error sentinel without message", `{"page":-1,"resultCount":-1}`, DecodeErrorInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeFragment(JSON, []byte(tt.payload))
			if err == nil {
				t.Fatal("expected error")
			}
			var decodeErr *DecodeError
			if !errors.As(err, &decodeErr) {
				t.Fatalf("expected *DecodeError, got %T", err)
			}
			if decodeErr.Kind != tt.kind {
				t.Errorf("Kind = %v, want %v", decodeErr.Kind, tt.kind)
			}
			if decodeErr.Codec != NameJSON {
				t.Errorf("Codec = %q, want %q", decodeErr.Codec, NameJSON)
			}
			if err.Error() == "" {
				t.Error("expected a non-empty diagnostic")
			}
		})
	}
}

func TestDecodeFragment_TooLarge(t *testing.T) {
	payload := append([]byte(`{"name":"`), bytes.Repeat([]byte("a"), MaxPayloadSize)...)
	payload = append(payload, []byte(`"}`)...)

	_, err := DecodeFragment(JSON, payload)
	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("expected *DecodeError, got %v", err)
	}
	if decodeErr.Kind != DecodeErrorTooLarge {
		t.Errorf("Kind = %v, want DecodeErrorTooLarge", decodeErr.Kind)
	}
}

func TestDecodeFragment_Msgpack(t *testing.T) {
	want := types.Fragment{Page: 2, ResultCount: 3, Name: "C-3PO", Films: r2d2Films, Txn: "txn-1"}
	payload, err := EncodeFragment(Msgpack, &want)
	if err != nil {
		t.Fatalf("EncodeFragment failed: %v", err)
	}

	got, err := DecodeFragment(Msgpack, payload)
	if err != nil {
		t.Fatalf("DecodeFragment failed: %v", err)
	}
	if *got != want {
		t.Errorf("decoded %+v, want %+v", *got, want)
	}
}

func TestDecodeFragment_MsgpackMalformed(t *testing.T) {
	notAMap, err := msgpack.Marshal("just a string")
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	nilValue, err := msgpack.Marshal(nil)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	wrongType, err := msgpack.Marshal(map[string]any{"page": "one"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	tests := []struct {
		name    string
		payload []byte
		kind    DecodeErrorKind
	}{
		{"string", notAMap, DecodeErrorSyntax},
		{"nil", nilValue, DecodeErrorSyntax},
		{"garbage", []byte{0xc1}, DecodeErrorSyntax},
		{"page as string", wrongType, DecodeErrorShape},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeFragment(Msgpack, tt.payload)
			var decodeErr *DecodeError
			if !errors.As(err, &decodeErr) {
				t.Fatalf("expected *DecodeError, got %v", err)
			}
			if decodeErr.Kind != tt.kind {
				t.Errorf("Kind = %v, want %v", decodeErr.Kind, tt.kind)
			}
		})
	}
}

func TestEncodeQuery_JSONWireShape(t *testing.T) {
	payload, err := EncodeQuery(JSON, &types.Query{Query: "luke"})
	if err != nil {
		t.Fatalf("EncodeQuery failed: %v", err)
	}
	if string(payload) != `{"query":"luke"}` {
		t.Errorf("payload = %s, want {\"query\":\"luke\"}", payload)
	}

	payload, err = EncodeQuery(JSON, &types.Query{Query: "luke", Txn: "abc"})
	if err != nil {
		t.Fatalf("EncodeQuery failed: %v", err)
	}
	if string(payload) != `{"query":"luke","txn":"abc"}` {
		t.Errorf("payload = %s", payload)
	}
}

func TestDecodeQuery(t *testing.T) {
	q, err := DecodeQuery(JSON, []byte(`{"query":"leia","txn":"t-1"}`))
	if err != nil {
		t.Fatalf("DecodeQuery failed: %v", err)
	}
	if q.Query != "leia" || q.Txn != "t-1" {
		t.Errorf("decoded %+v", *q)
	}

	if _, err := DecodeQuery(JSON, []byte(`"leia"`)); !IsDecodeError(err) {
		t.Errorf("expected decode error for non-object request, got %v", err)
	}
}

func TestByName(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"", NameJSON, false},
		{"json", NameJSON, false},
		{"MSGPACK", NameMsgpack, false},
		{"xml", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			c, err := ByName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ByName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err == nil && c.Name() != tt.want {
				t.Errorf("ByName(%q).Name() = %q, want %q", tt.input, c.Name(), tt.want)
			}
		})
	}
}
