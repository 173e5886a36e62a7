package spmapper_test

import (
	"context"
	"fmt"

	"spmapper"
	"spmapper/memory"
)

type Ticket struct {
	spmapper.Item `splist:"Help Desk"`
	Title         string  `spfield:"Title"`
	Severity      *int    `spfield:"Severity"`
	Owner         *string `spfield:"Owner"`
}

func ExampleRepository() {
	ctx := context.Background()

	site := memory.NewSite()
	_, _ = site.CreateList("Help Desk",
		spmapper.Field{InternalName: "Severity", TypeName: "Number"},
		spmapper.Field{InternalName: "Owner", TypeName: "User"},
	)

	repo := spmapper.NewRepository[Ticket](site)

	sev := 2
	if err := repo.InsertBatch(ctx, []Ticket{
		{Title: "Printer jammed", Severity: &sev},
		{Title: "VPN drops"},
	}); err != nil {
		fmt.Println("insert:", err)
		return
	}

	tickets, err := repo.GetAll(ctx)
	if err != nil {
		fmt.Println("get all:", err)
		return
	}
	for _, t := range tickets {
		fmt.Println(t.ID, t.Title, t.Severity != nil, t.Owner == nil)
	}

	_, err = repo.Query(ctx, spmapper.Eq("Title", "VPN drops"))
	fmt.Println(err)

	// Output:
	// 1 Printer jammed true true
	// 2 VPN drops false true
	// query by predicate: not implemented
}

func ExampleDecodeItem() {
	task, err := spmapper.DecodeItem[Note](spmapper.FieldValues{"ID": 4, "Title": "Draft report"})
	fmt.Println(task.Title, err)

	_, err = spmapper.DecodeItem[Note](spmapper.FieldValues{"ID": 4})
	fmt.Println(err)

	// Output:
	// Draft report <nil>
	// the field 'Title' required by property 'Title' of type spmapper_test.Note: field not found in item
}
