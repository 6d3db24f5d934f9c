// Package ir provides the data types shared by the compiler and the engine.
//
// This package contains type definitions only. All other internal packages
// import ir; ir imports nothing internal. This keeps the recipe substrate the
// foundational layer with no circular dependencies.
//
// Key design constraints:
//   - Quantities are int64; floats never appear in a program
//   - Multisets read absent items as zero, but Storage (engine) requires
//     every referenced item to be registered up front
//   - Composition is by value: CodeBlock.Append never aliases recipe maps
//   - All JSON tags use snake_case
package ir
