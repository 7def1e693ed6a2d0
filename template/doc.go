// Package template loads query templates from TOML or YAML files.
//
// A file holds any number of queries. Each query lists options, each option
// one generator and its ordered tests:
//
//	[[query]]
//	name = "FindCover"
//	required_params = ["MaxDistance"]
//
//	  [[query.option]]
//	  generator = { type = "SimpleGrid", radius = 1000, spacing = 100 }
//
//	    [[query.option.test]]
//	    type = "Distance"
//	    purpose = "FilterAndScore"
//	    filter = "Maximum"
//	    filter_max = "MaxDistance=1500"
//	    equation = "InverseLinear"
//
// Float settings accept a number or a param reference written as "Name" or
// "Name=default". Type names and enum values match case-insensitively.
package template
