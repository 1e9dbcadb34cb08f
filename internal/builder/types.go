// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package builder

import "fmt"

// goTypeString renders v's static type as the opaque stringified
// element type carried in hydroir.Metadata.ElementType. The IR never
// does anything with this beyond equality checks for diagnostics and
// rendering, so %T's output (not a wire format) is sufficient.
func goTypeString(v interface{}) string {
	return fmt.Sprintf("%T", v)
}
