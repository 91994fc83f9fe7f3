// Copyright 2022 The mlockmon Authors. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// pgflt provokes page faults: it maps each given file read-only and
// forces every page resident by copying it through a bounce buffer.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/memtools/mlockmon/pkg/mmap"
	_ "github.com/memtools/mlockmon/pkg/version"
)

func pageInFile(path string) error {
	fmt.Printf("mmapping %s...\n", path)
	r, err := mmap.MapFile(path)
	if err != nil {
		return err
	}
	defer r.Close()

	fmt.Printf("paging in %s...\n", path)
	return r.PageIn()
}

func main() {
	flag.Parse()
	if flag.NArg() == 0 {
		fmt.Fprintf(os.Stderr, "usage: %s FILE...\n", os.Args[0])
		os.Exit(1)
	}

	for _, path := range flag.Args() {
		if err := pageInFile(path); err != nil {
			fmt.Fprintf(os.Stderr, "pgflt: %v\n", err)
			os.Exit(1)
		}
	}
}
