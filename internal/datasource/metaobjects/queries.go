// Package metaobjects reads metaobjects and the entities they reference from
// the store's Admin GraphQL API. Fetcher walks paginated collections;
// Resolver turns reference ids into handles.
package metaobjects

import "metaexport/internal/schema"

// MaxPageSize is the largest page the Admin API serves for connections.
const MaxPageSize = 250

const metaobjectsQuery = `query Metaobjects($type: String!, $first: Int!, $after: String) {
  metaobjects(type: $type, first: $first, after: $after) {
    pageInfo { hasNextPage endCursor }
    edges { node { id handle updatedAt fields { key value } } }
  }
}`

const metaobjectQuery = `query Metaobject($id: ID!) {
  metaobject(id: $id) { id handle updatedAt fields { key value } }
}`

const pageHandleQuery = `query PageHandle($id: ID!) {
  page(id: $id) { handle }
}`

const productHandleQuery = `query ProductHandle($id: ID!) {
  product(id: $id) { handle }
}`

// node is the wire shape of one metaobject.
type node struct {
	ID        string `json:"id"`
	Handle    string `json:"handle"`
	UpdatedAt string `json:"updatedAt"`
	Fields    []struct {
		Key   string  `json:"key"`
		Value *string `json:"value"`
	} `json:"fields"`
}

// record converts the wire node. A null value keeps the key present with an
// empty string so the field still yields a row.
func (n node) record() schema.Record {
	fields := make(map[string]string, len(n.Fields))
	for _, f := range n.Fields {
		v := ""
		if f.Value != nil {
			v = *f.Value
		}
		fields[f.Key] = v
	}
	return schema.Record{
		ID:        n.ID,
		Handle:    n.Handle,
		UpdatedAt: n.UpdatedAt,
		Fields:    fields,
	}
}

type connectionResponse struct {
	Metaobjects struct {
		PageInfo struct {
			HasNextPage bool    `json:"hasNextPage"`
			EndCursor   *string `json:"endCursor"`
		} `json:"pageInfo"`
		Edges []struct {
			Node node `json:"node"`
		} `json:"edges"`
	} `json:"metaobjects"`
}

type metaobjectResponse struct {
	Metaobject *node `json:"metaobject"`
}

type handleNode struct {
	Handle string `json:"handle"`
}

type pageResponse struct {
	Page *handleNode `json:"page"`
}

type productResponse struct {
	Product *handleNode `json:"product"`
}
