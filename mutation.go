package spmapper

// Mutation is a marker interface for queued list item writes.
type Mutation interface {
	isMutation()
	Target() ListRef
}

// AddItem creates a list item with the given field values.
type AddItem struct {
	List   ListRef
	Values FieldValues
}

func (AddItem) isMutation() {}

// Target returns the list the item is added to.
func (m AddItem) Target() ListRef { return m.List }

// UpdateItem overwrites field values of an existing list item.
type UpdateItem struct {
	List   ListRef
	ID     int
	Values FieldValues
}

func (UpdateItem) isMutation() {}

// Target returns the list holding the item.
func (m UpdateItem) Target() ListRef { return m.List }

// DeleteItem removes a list item.
type DeleteItem struct {
	List ListRef
	ID   int
}

func (DeleteItem) isMutation() {}

// Target returns the list holding the item.
func (m DeleteItem) Target() ListRef { return m.List }

// Helper constructors

func NewAddItem(list ListRef, values FieldValues) AddItem {
	return AddItem{List: list, Values: values}
}

func NewUpdateItem(list ListRef, id int, values FieldValues) UpdateItem {
	return UpdateItem{List: list, ID: id, Values: values}
}

func NewDeleteItem(list ListRef, id int) DeleteItem {
	return DeleteItem{List: list, ID: id}
}
