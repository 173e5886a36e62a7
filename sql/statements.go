package sqlsite

import "strings"

// Site tables.
const (
	listsTable  = "sp_lists"
	fieldsTable = "sp_fields"
	itemsTable  = "sp_items"
)

// statements holds the site SQL with table names quoted for one dialect.
type statements struct {
	insertList        string
	selectListByID    string
	selectListByTitle string
	nextItemID        string
	selectLastItem    string
	insertField       string
	selectFields      string
	insertItem        string
	selectItem        string
	selectItems       string
	updateItem        string
	deleteItem        string
}

func newStatements(quote func(string) string) statements {
	r := strings.NewReplacer(
		"{lists}", quote(listsTable),
		"{fields}", quote(fieldsTable),
		"{items}", quote(itemsTable),
	)
	return statements{
		insertList: r.Replace(`INSERT INTO {lists} (id, title, title_key, next_item_id) VALUES (?, ?, ?, 1)`),

		selectListByID:    r.Replace(`SELECT id, title FROM {lists} WHERE id = ?`),
		selectListByTitle: r.Replace(`SELECT id, title FROM {lists} WHERE title_key = ?`),

		nextItemID:     r.Replace(`UPDATE {lists} SET next_item_id = next_item_id + 1 WHERE id = ?`),
		selectLastItem: r.Replace(`SELECT next_item_id - 1 FROM {lists} WHERE id = ?`),

		insertField: r.Replace(`INSERT INTO {fields} (list_id, position, internal_name, title, type_name, read_only)
		VALUES (?, ?, ?, ?, ?, ?)`),
		selectFields: r.Replace(`SELECT internal_name, title, type_name, read_only
		FROM {fields} WHERE list_id = ? ORDER BY position`),

		insertItem:  r.Replace(`INSERT INTO {items} (list_id, item_id, field_values) VALUES (?, ?, ?)`),
		selectItem:  r.Replace(`SELECT field_values FROM {items} WHERE list_id = ? AND item_id = ?`),
		selectItems: r.Replace(`SELECT item_id, field_values FROM {items} WHERE list_id = ? ORDER BY item_id`),
		updateItem:  r.Replace(`UPDATE {items} SET field_values = ? WHERE list_id = ? AND item_id = ?`),
		deleteItem:  r.Replace(`DELETE FROM {items} WHERE list_id = ? AND item_id = ?`),
	}
}
