/*
 * MIT License
 *
 * Copyright (c) 2022 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package supervisor

import "sync"

// hub is a small generic observer registry for the supervisor's
// on_process_* log streams; like internal/childproc's hub it copies the
// subscriber list before dispatch, but observers cannot be removed.
type hub[T any] struct {
	m    sync.Mutex
	subs []func(T)
}

func (h *hub[T]) Add(fn func(T)) {
	h.m.Lock()
	defer h.m.Unlock()
	h.subs = append(h.subs, fn)
}

func (h *hub[T]) Fire(v T) {
	h.m.Lock()
	cp := append([]func(T){}, h.subs...)
	h.m.Unlock()

	for _, fn := range cp {
		fn(v)
	}
}
