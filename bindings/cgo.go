// Command bindings builds MandukyaDB as a C shared library:
//
//	go build -buildmode=c-shared -o libmandukya.so ./bindings
//
// Every call that returns a string returns JSON in the same envelope the
// network server uses, which the caller must release with mandukya_free.
package main

/*
#include <stdlib.h>
*/
import "C"
import (
	"encoding/json"
	"errors"
	"sync"
	"unsafe"

	mandukyadb "github.com/nickyhof/MandukyaDB"
	"github.com/nickyhof/MandukyaDB/db"
)

var (
	handlesMu  sync.Mutex
	handles    = make(map[int]*mandukyadb.DB)
	nextHandle = 1
)

// mandukya_open opens target (":memory:" or a file path) and returns a
// handle, or -1 on failure.
//
//export mandukya_open
func mandukya_open(target *C.char) C.int {
	handle, err := mandukyadb.Open(C.GoString(target))
	if err != nil {
		return -1
	}

	handlesMu.Lock()
	defer handlesMu.Unlock()

	id := nextHandle
	nextHandle++
	handles[id] = handle
	return C.int(id)
}

//export mandukya_close
func mandukya_close(handle C.int) *C.char {
	handlesMu.Lock()
	h, ok := handles[int(handle)]
	delete(handles, int(handle))
	handlesMu.Unlock()

	if !ok {
		return makeErrorResponse(errors.New("invalid handle"))
	}
	if err := h.Close(); err != nil {
		return makeErrorResponse(err)
	}
	return makeResponse(db.Response{Success: true})
}

func lookup(handle C.int) (*mandukyadb.DB, bool) {
	handlesMu.Lock()
	defer handlesMu.Unlock()
	h, ok := handles[int(handle)]
	return h, ok
}

//export mandukya_execute
func mandukya_execute(handle C.int, query *C.char) *C.char {
	h, ok := lookup(handle)
	if !ok {
		return makeErrorResponse(errors.New("invalid handle"))
	}

	result, err := h.Execute(C.GoString(query))
	if err != nil {
		return makeErrorResponse(err)
	}

	return makeResponse(db.NewResponse(result))
}

// mandukya_tables returns the table names as a JSON array.
//
//export mandukya_tables
func mandukya_tables(handle C.int) *C.char {
	h, ok := lookup(handle)
	if !ok {
		return makeErrorResponse(errors.New("invalid handle"))
	}
	data, _ := json.Marshal(h.Tables())
	return makeResponse(db.Response{Success: true, Type: "tables", Result: data})
}

//export mandukya_free
func mandukya_free(ptr *C.char) {
	C.free(unsafe.Pointer(ptr))
}

func makeResponse(resp db.Response) *C.char {
	jsonData, _ := json.Marshal(resp)
	return C.CString(string(jsonData))
}

func makeErrorResponse(err error) *C.char {
	return makeResponse(db.ErrorResponse("error", err))
}

func main() {}
