package translator

// QuestionMarkOffsets returns the byte offset of every IRIS positional '?'
// placeholder in a code region of sql, left to right. The session layer
// uses this to splice a vector literal directly into the SQL text in place
// of a bound '?' (spec §4.2 stage 4 vector-literal inlining), since the
// offsets line up 1:1 with ParamFixup.IRISPosition.
func QuestionMarkOffsets(sql string) []int {
	mask := codeMask(sql)
	var offs []int
	for i := 0; i < len(sql); i++ {
		if sql[i] == '?' && mask[i] {
			offs = append(offs, i)
		}
	}
	return offs
}
