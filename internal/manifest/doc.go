// Package manifest loads link declarations from HCL files.
//
// A manifest describes jslink and jscallback blocks by element name
// path, so dashboards can declare their wiring in configuration rather
// than code:
//
//	jslink {
//	  source     = "column.slider"
//	  target     = "column.plot"
//	  properties = { value = "line_width" }
//	}
package manifest
