// Copyright ©2024 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !unix

package text

import "os"

func termColumns(*os.File) (int, bool) { return 0, false }
