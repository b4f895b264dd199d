package collection

import "testing"

func buildSampleTree() *Collection {
	login := &Request{Name: "login", Method: "POST"}
	getUser := &Request{Name: "get-user", Method: "GET"}
	deleteUser := &Request{Name: "delete-user", Method: "DELETE"}

	usersFolder := &Folder{
		Name:  "users",
		Items: []Item{getUser, deleteUser},
	}

	return &Collection{
		Info:  Info{Name: "sample"},
		Items: []Item{login, usersFolder},
	}
}

func TestWalkRequestsPreOrderWithAncestors(t *testing.T) {
	c := buildSampleTree()
	nodes := WalkRequests(c)

	if len(nodes) != 3 {
		t.Fatalf("expected 3 requests, got %d", len(nodes))
	}
	if nodes[0].Request.Name != "login" || len(nodes[0].Ancestors) != 0 {
		t.Fatalf("expected login first with no ancestors, got %+v", nodes[0])
	}
	if nodes[1].Request.Name != "get-user" || len(nodes[1].Ancestors) != 1 || nodes[1].Ancestors[0].Name != "users" {
		t.Fatalf("expected get-user nested under users, got %+v", nodes[1])
	}
}

func TestFindByNameFound(t *testing.T) {
	c := buildSampleTree()
	node, err := FindByName(c, "delete-user")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if node.Request.Method != "DELETE" {
		t.Fatalf("found wrong request: %+v", node.Request)
	}
}

func TestFindByNameNotFound(t *testing.T) {
	c := buildSampleTree()
	_, err := FindByName(c, "nope")
	if _, ok := err.(*NotFoundError); !ok {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestAncestorsForTopLevelRequest(t *testing.T) {
	c := buildSampleTree()
	login := c.Items[0].(*Request)
	if anc := Ancestors(c, login); anc != nil {
		t.Fatalf("expected nil ancestors for top-level request, got %+v", anc)
	}
}

func TestAncestorsForNestedRequest(t *testing.T) {
	c := buildSampleTree()
	usersFolder := c.Items[1].(*Folder)
	getUser := usersFolder.Items[0].(*Request)

	anc := Ancestors(c, getUser)
	if len(anc) != 1 || anc[0] != usersFolder {
		t.Fatalf("expected [usersFolder], got %+v", anc)
	}
}
