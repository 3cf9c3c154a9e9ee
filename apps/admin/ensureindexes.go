package main

import (
	"context"
	"fmt"

	"github.com/huyld1504/SchoolMedicalCareSystem-sub005/storage/document"
)

var ensureIndexesFunc = document.EnsureIndexes // mockable

func (cli *commandLine) ensureIndexes() error {
	if cli.docDB == nil {
		return errNoDocumentStore
	}
	if err := ensureIndexesFunc(context.Background(), cli.docDB); err != nil {
		return err
	}
	fmt.Println("indexes are up to date")
	return nil
}
