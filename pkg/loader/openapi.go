package loader

import (
	"fmt"
	"strings"

	"github.com/pb33f/libopenapi"
	v3 "github.com/pb33f/libopenapi/datamodel/high/v3"

	"github.com/blackcoderx/harrier/pkg/collection"
)

// OpenAPILoader synthesizes a collection.Collection from an OpenAPI 3.x
// document: one Folder per tag, one Request per operation, iterating
// pb33f/libopenapi's ordered map over Paths; within a path, operations
// are taken in GET, POST, PUT, DELETE, PATCH order.
type OpenAPILoader struct{}

func (o *OpenAPILoader) Detect(content []byte) bool {
	s := string(content)
	return strings.Contains(s, "openapi") || strings.Contains(s, "swagger")
}

func (o *OpenAPILoader) Load(content []byte) (*collection.Collection, error) {
	doc, err := libopenapi.NewDocument(content)
	if err != nil {
		return nil, &SchemaError{Format: FormatOpenAPI, Reason: err.Error()}
	}
	model, errs := doc.BuildV3Model()
	if errs != nil {
		return nil, &SchemaError{Format: FormatOpenAPI, Reason: fmt.Sprint(errs)}
	}

	c := &collection.Collection{
		Info: collection.Info{
			Name:          model.Model.Info.Title,
			SchemaVersion: collection.SchemaV21,
			Description:   model.Model.Info.Description,
		},
	}

	folders := map[string]*collection.Folder{}
	var order []string

	var baseHost, baseScheme string
	if len(model.Model.Servers) > 0 {
		baseHost, baseScheme = splitServerURL(model.Model.Servers[0].URL)
	}

	for pair := model.Model.Paths.PathItems.First(); pair != nil; pair = pair.Next() {
		path := pair.Key()
		item := pair.Value()

		ops := []struct {
			method string
			op     *v3.Operation
		}{
			{"GET", item.Get},
			{"POST", item.Post},
			{"PUT", item.Put},
			{"DELETE", item.Delete},
			{"PATCH", item.Patch},
		}
		for _, m := range ops {
			method, op := m.method, m.op
			if op == nil {
				continue
			}
			req := &collection.Request{
				Name:        operationName(method, path, op),
				Description: op.Description,
				Method:      method,
				URL: collection.URL{
					Protocol: baseScheme,
					Host:     splitHost(baseHost),
					Path:     splitPath(path),
					Raw:      baseScheme + "://" + baseHost + path,
				},
			}
			for _, p := range op.Parameters {
				if p.In != "header" {
					continue
				}
				req.Headers = append(req.Headers, collection.Header{Key: p.Name})
			}
			for _, p := range op.Parameters {
				if p.In != "query" {
					continue
				}
				req.URL.Query = append(req.URL.Query, collection.QueryParam{Key: p.Name})
			}
			if op.RequestBody != nil {
				req.Body = &collection.Body{Mode: collection.BodyRaw, Raw: "{}"}
			}

			tag := "default"
			if len(op.Tags) > 0 {
				tag = op.Tags[0]
			}
			f, ok := folders[tag]
			if !ok {
				f = &collection.Folder{Name: tag}
				folders[tag] = f
				order = append(order, tag)
			}
			f.Items = append(f.Items, req)
		}
	}

	for _, tag := range order {
		c.Items = append(c.Items, folders[tag])
	}
	return c, nil
}

func operationName(method, path string, op *v3.Operation) string {
	if op.Summary != "" {
		return op.Summary
	}
	if op.OperationId != "" {
		return op.OperationId
	}
	return method + " " + path
}

func splitServerURL(raw string) (host, scheme string) {
	scheme = "https"
	rest := raw
	if idx := strings.Index(raw, "://"); idx >= 0 {
		scheme = raw[:idx]
		rest = raw[idx+3:]
	}
	rest = strings.TrimSuffix(rest, "/")
	return rest, scheme
}

func splitHost(host string) []string {
	if host == "" {
		return nil
	}
	return strings.Split(host, ".")
}

// splitPath breaks an OpenAPI path into segments, rewriting `{petId}`
// templates to the `:petId` path-parameter form the resolver speaks.
func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	segs := strings.Split(trimmed, "/")
	for i, seg := range segs {
		if strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}") {
			segs[i] = ":" + strings.Trim(seg, "{}")
		}
	}
	return segs
}
