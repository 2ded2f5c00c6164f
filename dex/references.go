/*
 * Redex - A peephole optimizer for Dalvik bytecode
 *
 * Copyright Redex Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *   http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package dex

import (
	"fmt"
	"strings"
	"sync"
)

// String is an interned string constant.
// Two String pointers are equal exactly when their values are equal,
// so identity comparison doubles as content comparison.
type String struct {
	value       string
	utf16Length int
}

func (s *String) Value() string {
	return s.value
}

// Utf16Length returns the length of the string in UTF-16 code units,
// the unit Dalvik's String.length() reports.
// This differs from the byte length for any non-ASCII content.
func (s *String) Utf16Length() int {
	return s.utf16Length
}

func (s *String) String() string {
	return fmt.Sprintf("%q", s.value)
}

// Type is an interned type reference, identified by its descriptor,
// e.g. "Ljava/lang/String;".
type Type struct {
	descriptor string
}

func (t *Type) Descriptor() string {
	return t.descriptor
}

func (t *Type) String() string {
	return t.descriptor
}

// Method is an interned method reference. A method definition is the
// same object with Code attached.
type Method struct {
	Class      *Type
	Name       string
	ReturnType *Type
	Params     []*Type

	// Code is non-nil only for method definitions in the scanned scope,
	// never for bare references.
	Code *Code
}

func (m *Method) Proto() string {
	var builder strings.Builder
	builder.WriteByte('(')
	for _, param := range m.Params {
		builder.WriteString(param.descriptor)
	}
	builder.WriteByte(')')
	builder.WriteString(m.ReturnType.descriptor)
	return builder.String()
}

func (m *Method) String() string {
	return fmt.Sprintf("%s.%s:%s", m.Class.descriptor, m.Name, m.Proto())
}

// Interning tables. The optimizer itself is single-threaded, but tests
// and a parallelizing driver may intern from multiple goroutines.
var (
	internMutex     sync.Mutex
	internedStrings = map[string]*String{}
	internedTypes   = map[string]*Type{}
	internedMethods = map[string]*Method{}
)

// MakeString returns the canonical String for the given value.
func MakeString(value string) *String {
	internMutex.Lock()
	defer internMutex.Unlock()

	if s, ok := internedStrings[value]; ok {
		return s
	}
	s := &String{
		value:       value,
		utf16Length: utf16Length(value),
	}
	internedStrings[value] = s
	return s
}

// MakeType returns the canonical Type for the given descriptor.
func MakeType(descriptor string) *Type {
	internMutex.Lock()
	defer internMutex.Unlock()

	if t, ok := internedTypes[descriptor]; ok {
		return t
	}
	t := &Type{descriptor: descriptor}
	internedTypes[descriptor] = t
	return t
}

// MakeMethod returns the canonical Method reference for the given
// class descriptor, name, return type descriptor, and parameter type
// descriptors.
func MakeMethod(class string, name string, returnType string, params ...string) *Method {
	class_ := MakeType(class)
	returnType_ := MakeType(returnType)
	paramTypes := make([]*Type, 0, len(params))
	for _, param := range params {
		paramTypes = append(paramTypes, MakeType(param))
	}

	method := &Method{
		Class:      class_,
		Name:       name,
		ReturnType: returnType_,
		Params:     paramTypes,
	}
	key := method.String()

	internMutex.Lock()
	defer internMutex.Unlock()

	if m, ok := internedMethods[key]; ok {
		return m
	}
	internedMethods[key] = method
	return method
}

func utf16Length(value string) int {
	length := 0
	for _, r := range value {
		if r > 0xFFFF {
			length += 2
		} else {
			length++
		}
	}
	return length
}
