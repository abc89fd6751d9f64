// Package config defines the settings of the born-inline tool and loads
// them from an optional HCL file.
//
// A configuration file looks like this:
//
//	log_level  = "debug"
//	log_format = "json"
//	output     = "inlined.onnx"
//
//	inline {
//	  only = ["pkg.custom::Gelu"]
//	  keep = ["pkg.custom::Attention:v2"]
//	}
//
// Values given on the command line take precedence over the file.
package config
