package pdf

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

// CanSaveIncrementally reports whether the file structure allows appending an
// incremental update. Repaired files get a full rewrite instead.
func (d *Document) CanSaveIncrementally() bool {
	return !d.repaired && !d.encrypted && d.trailer.Get("Root") != nil
}

// SaveIncremental appends the changed objects plus a new cross-reference
// section to the original file, preserving its existing bytes.
func (d *Document) SaveIncremental() error {
	if !d.CanSaveIncrementally() {
		return fmt.Errorf("document does not support incremental save")
	}
	if len(d.dirty) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.Write(d.buf)
	if d.buf[len(d.buf)-1] != '\n' {
		sb.WriteByte('\n')
	}

	offsets := d.writeObjects(&sb, sortedDirtyNums(d.dirty))

	var startXref int64
	if d.usesXrefStream {
		startXref = d.writeXrefStreamSection(&sb, offsets)
	} else {
		startXref = d.writeXrefTableSection(&sb, offsets)
	}
	fmt.Fprintf(&sb, "startxref\n%d\n%%%%EOF\n", startXref)

	return atomicWrite(d.path, []byte(sb.String()))
}

// SaveFull writes a complete rewrite of the document to path.
func (d *Document) SaveFull(path string) error {
	var sb strings.Builder
	sb.WriteString("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n")

	nums := make([]int, 0, d.maxObjNum)
	for num := 1; num <= d.maxObjNum; num++ {
		nums = append(nums, num)
	}

	offsets := make(map[int]int64, len(nums))
	for _, num := range nums {
		obj, ok := d.objectForWrite(num)
		if !ok {
			continue
		}
		offsets[num] = int64(sb.Len())
		writeIndirect(&sb, num, obj)
	}

	startXref := int64(sb.Len())
	fmt.Fprintf(&sb, "xref\n0 %d\n", d.maxObjNum+1)
	fmt.Fprintf(&sb, "%010d %05d f \n", 0, 65535)
	for num := 1; num <= d.maxObjNum; num++ {
		if off, ok := offsets[num]; ok {
			fmt.Fprintf(&sb, "%010d %05d n \n", off, 0)
		} else {
			fmt.Fprintf(&sb, "%010d %05d f \n", 0, 0)
		}
	}

	trailer := Dict{"Size": Integer(d.maxObjNum + 1)}
	for _, key := range []Name{"Root", "Info", "ID"} {
		if v := d.trailer.Get(key); v != nil {
			trailer[key] = v
		}
	}
	sb.WriteString("trailer\n")
	serialize(&sb, trailer)
	fmt.Fprintf(&sb, "\nstartxref\n%d\n%%%%EOF\n", startXref)

	return atomicWrite(path, []byte(sb.String()))
}

// objectForWrite returns the current value of an object for a full rewrite.
// Container-only objects (object streams, xref streams) are dropped.
func (d *Document) objectForWrite(num int) (Object, bool) {
	if obj, ok := d.dirty[num]; ok {
		return obj, true
	}
	entry, ok := d.xref[num]
	if !ok || entry.typ == xrefFree {
		return nil, false
	}
	obj, err := d.getObject(num)
	if err != nil {
		return nil, false
	}
	if s, isStream := obj.(Stream); isStream {
		if t, _ := d.resolve(s.Dict.Get("Type")).(Name); t == "ObjStm" || t == "XRef" {
			return nil, false
		}
	}
	if _, isNull := obj.(Null); isNull {
		return nil, false
	}
	return obj, true
}

func sortedDirtyNums(dirty map[int]Object) []int {
	nums := make([]int, 0, len(dirty))
	for num := range dirty {
		nums = append(nums, num)
	}
	sort.Ints(nums)
	return nums
}

func (d *Document) writeObjects(sb *strings.Builder, nums []int) map[int]int64 {
	offsets := make(map[int]int64, len(nums))
	for _, num := range nums {
		offsets[num] = int64(sb.Len())
		writeIndirect(sb, num, d.dirty[num])
	}
	return offsets
}

func writeIndirect(sb *strings.Builder, num int, obj Object) {
	// Streams get their Length pinned to the raw byte count; the original
	// may have used an indirect Length object.
	if s, ok := obj.(Stream); ok {
		dict := Dict{}
		for k, v := range s.Dict {
			dict[k] = v
		}
		dict["Length"] = Integer(len(s.Raw))
		obj = Stream{Dict: dict, Raw: s.Raw}
	}

	fmt.Fprintf(sb, "%d 0 obj\n", num)
	serialize(sb, obj)
	sb.WriteString("\nendobj\n")
}

// writeXrefTableSection appends a classic xref table for the updated objects.
func (d *Document) writeXrefTableSection(sb *strings.Builder, offsets map[int]int64) int64 {
	startXref := int64(sb.Len())
	sb.WriteString("xref\n")
	for _, run := range contiguousRuns(sortedKeys(offsets)) {
		fmt.Fprintf(sb, "%d %d\n", run[0], len(run))
		for _, num := range run {
			fmt.Fprintf(sb, "%010d %05d n \n", offsets[num], 0)
		}
	}

	trailer := Dict{
		"Size": Integer(d.maxObjNum + 1),
		"Prev": Integer(d.prevStartXref),
	}
	for _, key := range []Name{"Root", "Info", "ID"} {
		if v := d.trailer.Get(key); v != nil {
			trailer[key] = v
		}
	}
	sb.WriteString("trailer\n")
	serialize(sb, trailer)
	sb.WriteByte('\n')
	return startXref
}

// writeXrefStreamSection appends a cross-reference stream, required when the
// original file uses one.
func (d *Document) writeXrefStreamSection(sb *strings.Builder, offsets map[int]int64) int64 {
	d.maxObjNum++
	xrefNum := d.maxObjNum
	startXref := int64(sb.Len())

	// The stream references itself, so its offset must be known up front.
	offsets[xrefNum] = startXref
	nums := sortedKeys(offsets)

	var data []byte
	var index Array
	for _, run := range contiguousRuns(nums) {
		index = append(index, Integer(run[0]), Integer(len(run)))
		for _, num := range run {
			off := offsets[num]
			data = append(data, 1,
				byte(off>>24), byte(off>>16), byte(off>>8), byte(off),
				0, 0)
		}
	}

	dict := Dict{
		"Type":   Name("XRef"),
		"Size":   Integer(d.maxObjNum + 1),
		"W":      Array{Integer(1), Integer(4), Integer(2)},
		"Index":  index,
		"Prev":   Integer(d.prevStartXref),
		"Length": Integer(len(data)),
	}
	for _, key := range []Name{"Root", "Info", "ID"} {
		if v := d.trailer.Get(key); v != nil {
			dict[key] = v
		}
	}

	writeIndirect(sb, xrefNum, Stream{Dict: dict, Raw: data})
	return startXref
}

func sortedKeys(m map[int]int64) []int {
	nums := make([]int, 0, len(m))
	for num := range m {
		nums = append(nums, num)
	}
	sort.Ints(nums)
	return nums
}

// contiguousRuns splits sorted object numbers into runs of consecutive
// numbers, the subsection unit of xref sections.
func contiguousRuns(nums []int) [][]int {
	var runs [][]int
	for _, num := range nums {
		if n := len(runs); n > 0 && runs[n-1][len(runs[n-1])-1] == num-1 {
			runs[n-1] = append(runs[n-1], num)
			continue
		}
		runs = append(runs, []int{num})
	}
	return runs
}

func atomicWrite(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
