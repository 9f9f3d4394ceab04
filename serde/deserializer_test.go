package serde

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/CaliLuke/go-odata/data"
	"github.com/CaliLuke/go-odata/edm"
)

func TestDeserializer_InvalidBytes(t *testing.T) {
	d := NewDeserializer(nil, nil)
	garbage := "\x00\x01not a document"
	tests := []struct {
		name   string
		target string
		run    func() error
	}{
		{"entity json", TargetEntity, func() error {
			_, err := d.ToEntity(strings.NewReader(garbage), PubFormatJSON)
			return err
		}},
		{"entity atom", TargetEntity, func() error {
			_, err := d.ToEntity(strings.NewReader(garbage), PubFormatAtom)
			return err
		}},
		{"entity set json", TargetEntitySet, func() error {
			_, err := d.ToEntitySet(strings.NewReader(garbage), PubFormatJSON)
			return err
		}},
		{"entity set atom", TargetEntitySet, func() error {
			_, err := d.ToEntitySet(strings.NewReader(garbage), PubFormatAtom)
			return err
		}},
		{"property json", TargetProperty, func() error {
			_, err := d.ToProperty(strings.NewReader(garbage), FormatJSON)
			return err
		}},
		{"property xml", TargetProperty, func() error {
			_, err := d.ToProperty(strings.NewReader(garbage), FormatXML)
			return err
		}},
		{"error json", TargetError, func() error {
			_, err := d.ToError(strings.NewReader(garbage), false)
			return err
		}},
		{"error xml", TargetError, func() error {
			_, err := d.ToError(strings.NewReader(garbage), true)
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			var de *DeserializationError
			if !errors.As(err, &de) {
				t.Fatalf("got %v, want DeserializationError", err)
			}
			if de.Target != tt.target {
				t.Errorf("Target: got %q, want %q", de.Target, tt.target)
			}
			if de.Cause == nil {
				t.Error("Cause: got nil")
			}
			if !strings.Contains(err.Error(), "while deserializing "+tt.target) {
				t.Errorf("Error(): got %q", err.Error())
			}
		})
	}
}

func TestDeserializer_UnknownFormat(t *testing.T) {
	d := NewDeserializer(nil, nil)
	_, err := d.ToEntity(strings.NewReader(`{}`), PubFormat(9))
	if !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("ToEntity: got %v, want ErrUnknownFormat", err)
	}
	_, err = d.ToEntitySet(strings.NewReader(`{}`), PubFormat(-1))
	if !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("ToEntitySet: got %v, want ErrUnknownFormat", err)
	}
	_, err = d.ToProperty(strings.NewReader(`{}`), Format(5))
	var de *DeserializationError
	if !errors.As(err, &de) || de.Target != TargetProperty || !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("ToProperty: got %v", err)
	}
}

func TestDeserializer_MaxBytes(t *testing.T) {
	in := `{"Name":"Alice"}`
	d := NewDeserializer(nil, nil, WithMaxBytes(5))
	_, err := d.ToEntity(strings.NewReader(in), PubFormatJSON)
	if !errors.Is(err, ErrPayloadTooLarge) {
		t.Errorf("got %v, want ErrPayloadTooLarge", err)
	}

	d = NewDeserializer(nil, nil, WithMaxBytes(int64(len(in))))
	if _, err := d.ToEntity(strings.NewReader(in), PubFormatJSON); err != nil {
		t.Errorf("payload at limit: %v", err)
	}
}

func TestDeserializer_NilReader(t *testing.T) {
	d := NewDeserializer(nil, nil)
	_, err := d.ToEntity(nil, PubFormatJSON)
	if !errors.Is(err, ErrMalformed) {
		t.Errorf("got %v, want ErrMalformed", err)
	}
}

func TestDeserializer_ReaderPanic(t *testing.T) {
	d := NewDeserializer(nil, nil)
	res, err := decode(d, strings.NewReader("x"), TargetEntity, "test", func(*Deserializer, []byte) (*data.ResWrap[*data.Entity], error) {
		panic("boom")
	})
	if res != nil {
		t.Errorf("result: got %v, want nil", res)
	}
	var de *DeserializationError
	if !errors.As(err, &de) || de.Target != TargetEntity || !strings.Contains(err.Error(), "boom") {
		t.Errorf("got %v, want DeserializationError with panic cause", err)
	}
}

func TestDeserializer_ToErrorPayloadOnly(t *testing.T) {
	d := NewDeserializer(nil, nil)
	e, err := d.ToError(strings.NewReader(`{"error":{"code":"501","message":"Not Implemented"}}`), false)
	if err != nil {
		t.Fatalf("ToError: %v", err)
	}
	var _ *data.Error = e
	if e.Code != "501" || e.Message != "Not Implemented" {
		t.Errorf("got %+v", e)
	}
}

func TestDeserializer_Registry(t *testing.T) {
	reg := edm.NewRegistry()
	if NewDeserializer(reg, nil).Registry() != reg {
		t.Error("Registry: expected the registry passed in")
	}
	if NewDeserializer(nil, nil).Registry() == nil {
		t.Error("Registry: expected a default registry")
	}
}

func TestDeserializer_Concurrent(t *testing.T) {
	d := NewDeserializer(nil, salesModel())
	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var err error
			if i%2 == 0 {
				_, err = d.ToEntity(strings.NewReader(jsonCustomer), PubFormatJSON)
			} else {
				_, err = d.ToEntity(strings.NewReader(atomEntry), PubFormatAtom)
			}
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Errorf("concurrent decode: %v", err)
		}
	}
}

func TestParseFormats(t *testing.T) {
	if f, ok := ParsePubFormat("ATOM"); !ok || f != PubFormatAtom {
		t.Errorf("ParsePubFormat(ATOM): got %v, %v", f, ok)
	}
	if f, ok := ParsePubFormat("json"); !ok || f != PubFormatJSON || f.String() != "json" {
		t.Errorf("ParsePubFormat(json): got %v, %v", f, ok)
	}
	if _, ok := ParsePubFormat("yaml"); ok {
		t.Error("ParsePubFormat(yaml): got true")
	}
	if f, ok := ParseFormat("xml"); !ok || f != FormatXML || f.String() != "xml" {
		t.Errorf("ParseFormat(xml): got %v, %v", f, ok)
	}
	if Format(7).String() != "unknown" {
		t.Errorf("Format(7): got %q", Format(7).String())
	}
}
