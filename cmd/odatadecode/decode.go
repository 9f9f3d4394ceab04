package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/echa/config"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/CaliLuke/go-odata/csdl"
	"github.com/CaliLuke/go-odata/edm"
	"github.com/CaliLuke/go-odata/serde"
)

// runDecode decodes the payload at path using the decode.* settings and
// writes the rendered result to w.
func runDecode(path string, w io.Writer) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var model edm.Model
	if md := config.GetString("decode.metadata"); md != "" {
		m, err := csdl.LoadFile(md)
		if err != nil {
			return err
		}
		log.Debugf("loaded metadata from %s", md)
		model = m
	}

	reg := edm.NewRegistry()
	d := serde.NewDeserializer(reg, model, serde.WithMaxBytes(config.GetInt64("decode.max_bytes")))
	v := &viewer{registry: reg}

	var tree any
	format := strings.ToLower(config.GetString("decode.format"))
	switch k := strings.ToLower(config.GetString("decode.kind")); k {
	case "entity", "entityset":
		pf, ok := serde.ParsePubFormat(format)
		if !ok {
			return fmt.Errorf("unknown payload format %q", format)
		}
		if k == "entity" {
			res, err := d.ToEntity(f, pf)
			if err != nil {
				return err
			}
			tree = wrapView(res.ContextURL, res.Metadata, v.entity(res.Payload))
		} else {
			res, err := d.ToEntitySet(f, pf)
			if err != nil {
				return err
			}
			tree = wrapView(res.ContextURL, res.Metadata, v.entitySet(res.Payload))
		}
	case "property":
		pf, ok := serde.ParseFormat(format)
		if !ok {
			return fmt.Errorf("unknown payload format %q", format)
		}
		res, err := d.ToProperty(f, pf)
		if err != nil {
			return err
		}
		tree = wrapView(res.ContextURL, res.Metadata, v.property(res.Payload))
	case "error":
		e, err := d.ToError(f, format == "xml" || format == "atom")
		if err != nil {
			return err
		}
		tree = errorView(e)
	default:
		return fmt.Errorf("unknown payload kind %q", k)
	}
	log.Infof("decoded %s", path)
	return writeTree(w, config.GetString("decode.output"), tree)
}

func writeTree(w io.Writer, output string, tree any) error {
	switch strings.ToLower(output) {
	case "json", "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(tree)
	case "msgpack":
		enc := msgpack.NewEncoder(w)
		enc.SetSortMapKeys(true)
		return enc.Encode(tree)
	}
	return fmt.Errorf("unknown output encoding %q", output)
}
