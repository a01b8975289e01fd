// Package cache memoizes values that are expensive to build and safe to
// share, such as validated shader programs.
//
//	programs := cache.New[string, *shader.Program](8)
//	prog, err := programs.GetOrCreate(name, func() (*shader.Program, error) {
//	    return shader.CompileFile(fsys, name)
//	})
//
// Cache is safe for concurrent use and must not be copied after creation.
package cache
