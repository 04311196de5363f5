package command

import (
	"context"
	"math"
	"strconv"
	"strings"

	"github.com/ridgedb/ridgedb/internal/store"
	"github.com/ridgedb/ridgedb/pkg/resp"
)

func registerZSetCommands(t *Table) {
	t.register(&Command{Name: "ZADD", MinArgs: 3, MaxArgs: -1, Write: true, Handler: cmdZAdd})
	t.register(&Command{Name: "ZREM", MinArgs: 2, MaxArgs: -1, Write: true, Handler: cmdZRem})
	t.register(&Command{Name: "ZSCORE", MinArgs: 2, MaxArgs: 2, Handler: cmdZScore})
	t.register(&Command{Name: "ZMSCORE", MinArgs: 2, MaxArgs: -1, Handler: cmdZMScore})
	t.register(&Command{Name: "ZCARD", MinArgs: 1, MaxArgs: 1, Handler: cmdZCard})
	t.register(&Command{Name: "ZCOUNT", MinArgs: 3, MaxArgs: 3, Handler: cmdZCount})
	t.register(&Command{Name: "ZRANK", MinArgs: 2, MaxArgs: 2, Handler: cmdZRank})
	t.register(&Command{Name: "ZREVRANK", MinArgs: 2, MaxArgs: 2, Handler: cmdZRevRank})
	t.register(&Command{Name: "ZINCRBY", MinArgs: 3, MaxArgs: 3, Write: true, Handler: cmdZIncrBy})
	t.register(&Command{Name: "ZRANGE", MinArgs: 3, MaxArgs: -1, Handler: cmdZRange})
	t.register(&Command{Name: "ZREVRANGE", MinArgs: 3, MaxArgs: -1, Handler: cmdZRevRange})
	t.register(&Command{Name: "ZRANGEBYSCORE", MinArgs: 3, MaxArgs: -1, Handler: cmdZRangeByScore})
	t.register(&Command{Name: "ZREVRANGEBYSCORE", MinArgs: 3, MaxArgs: -1, Handler: cmdZRevRangeByScore})
	t.register(&Command{Name: "ZRANGEBYLEX", MinArgs: 3, MaxArgs: -1, Handler: cmdZRangeByLex})
	t.register(&Command{Name: "ZREVRANGEBYLEX", MinArgs: 3, MaxArgs: -1, Handler: cmdZRevRangeByLex})
	t.register(&Command{Name: "ZLEXCOUNT", MinArgs: 3, MaxArgs: 3, Handler: cmdZLexCount})
	t.register(&Command{Name: "ZREMRANGEBYRANK", MinArgs: 3, MaxArgs: 3, Write: true, Handler: cmdZRemRangeByRank})
	t.register(&Command{Name: "ZREMRANGEBYSCORE", MinArgs: 3, MaxArgs: 3, Write: true, Handler: cmdZRemRangeByScore})
	t.register(&Command{Name: "ZREMRANGEBYLEX", MinArgs: 3, MaxArgs: 3, Write: true, Handler: cmdZRemRangeByLex})
	t.register(&Command{Name: "ZPOPMIN", MinArgs: 1, MaxArgs: 2, Write: true, Handler: cmdZPopMin})
	t.register(&Command{Name: "ZPOPMAX", MinArgs: 1, MaxArgs: 2, Write: true, Handler: cmdZPopMax})
	t.register(&Command{Name: "BZPOPMIN", MinArgs: 2, MaxArgs: -1, Write: true, Handler: cmdBZPopMin})
	t.register(&Command{Name: "BZPOPMAX", MinArgs: 2, MaxArgs: -1, Write: true, Handler: cmdBZPopMax})
	t.register(&Command{Name: "ZUNIONSTORE", MinArgs: 3, MaxArgs: -1, Write: true, Handler: cmdZUnionStore})
	t.register(&Command{Name: "ZINTERSTORE", MinArgs: 3, MaxArgs: -1, Write: true, Handler: cmdZInterStore})
	t.register(&Command{Name: "ZDIFF", MinArgs: 2, MaxArgs: -1, Handler: cmdZDiff})
	t.register(&Command{Name: "ZDIFFSTORE", MinArgs: 3, MaxArgs: -1, Write: true, Handler: cmdZDiffStore})
}

func cmdZAdd(_ context.Context, c *Context, args []string) resp.Value {
	key := args[0]
	opts := store.ZAddOpts{}
	i := 1
	for i < len(args) {
		switch strings.ToUpper(args[i]) {
		case "NX":
			opts.OnlyIfAbs = true
			i++
		case "XX":
			opts.OnlyIfPres = true
			i++
		case "GT":
			opts.GreaterOnly = true
			i++
		case "LT":
			opts.LessOnly = true
			i++
		case "CH":
			opts.ReturnChanged = true
			i++
		default:
			goto scores
		}
	}
scores:
	rest := args[i:]
	if len(rest)%2 != 0 || len(rest) == 0 {
		return resp.Err("ERR syntax error")
	}
	scores := make(map[string]float64, len(rest)/2)
	for j := 0; j < len(rest); j += 2 {
		f, err := strconv.ParseFloat(rest[j], 64)
		if err != nil {
			return resp.Err("ERR value is not a valid float")
		}
		scores[rest[j+1]] = f
	}
	n, err := c.db().ZAdd(key, scores, opts)
	if err != nil {
		return errToValue(err)
	}
	return intReply(n)
}

func cmdZRem(_ context.Context, c *Context, args []string) resp.Value {
	n, err := c.db().ZRem(args[0], args[1:])
	if err != nil {
		return errToValue(err)
	}
	return intReply(n)
}

func formatScore(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func cmdZScore(_ context.Context, c *Context, args []string) resp.Value {
	s, ok, err := c.db().ZScore(args[0], args[1])
	if err != nil {
		return errToValue(err)
	}
	if !ok {
		return resp.NullBulk()
	}
	return resp.BulkString(formatScore(s))
}

func cmdZMScore(_ context.Context, c *Context, args []string) resp.Value {
	vs := make([]resp.Value, len(args)-1)
	for i, m := range args[1:] {
		s, ok, err := c.db().ZScore(args[0], m)
		if err != nil {
			return errToValue(err)
		}
		if !ok {
			vs[i] = resp.NullBulk()
		} else {
			vs[i] = resp.BulkString(formatScore(s))
		}
	}
	return resp.Array(vs)
}

func cmdZCard(_ context.Context, c *Context, args []string) resp.Value {
	n, err := c.db().ZCard(args[0])
	if err != nil {
		return errToValue(err)
	}
	return intReply(n)
}

func parseScoreBound(s string) (float64, bool, error) {
	excl := strings.HasPrefix(s, "(")
	if excl {
		s = s[1:]
	}
	switch s {
	case "+inf", "inf":
		return math.Inf(1), excl, nil
	case "-inf":
		return math.Inf(-1), excl, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, err
	}
	return f, excl, nil
}

func parseScoreRange(minStr, maxStr string) (store.ScoreRange, error) {
	min, minExcl, err := parseScoreBound(minStr)
	if err != nil {
		return store.ScoreRange{}, err
	}
	max, maxExcl, err := parseScoreBound(maxStr)
	if err != nil {
		return store.ScoreRange{}, err
	}
	return store.ScoreRange{Min: min, Max: max, MinExcl: minExcl, MaxExcl: maxExcl}, nil
}

func cmdZCount(_ context.Context, c *Context, args []string) resp.Value {
	r, err := parseScoreRange(args[1], args[2])
	if err != nil {
		return resp.Err("ERR min or max is not a float")
	}
	n, serr := c.db().ZCount(args[0], r)
	if serr != nil {
		return errToValue(serr)
	}
	return intReply(n)
}

func cmdZRank(_ context.Context, c *Context, args []string) resp.Value {
	r, ok, err := c.db().ZRank(args[0], args[1], false)
	if err != nil {
		return errToValue(err)
	}
	if !ok {
		return resp.NullBulk()
	}
	return resp.Int(int64(r))
}

func cmdZRevRank(_ context.Context, c *Context, args []string) resp.Value {
	r, ok, err := c.db().ZRank(args[0], args[1], true)
	if err != nil {
		return errToValue(err)
	}
	if !ok {
		return resp.NullBulk()
	}
	return resp.Int(int64(r))
}

func cmdZIncrBy(_ context.Context, c *Context, args []string) resp.Value {
	delta, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return resp.Err("ERR value is not a valid float")
	}
	n, serr := c.db().ZIncrBy(args[0], args[2], delta)
	if serr != nil {
		return errToValue(serr)
	}
	return resp.BulkString(formatScore(n))
}

func zmembersToResp(ms []store.ZMember, withScores bool) resp.Value {
	if !withScores {
		vs := make([]resp.Value, len(ms))
		for i, m := range ms {
			vs[i] = resp.BulkString(m.Member)
		}
		return resp.Array(vs)
	}
	vs := make([]resp.Value, 0, len(ms)*2)
	for _, m := range ms {
		vs = append(vs, resp.BulkString(m.Member), resp.BulkString(formatScore(m.Score)))
	}
	return resp.Array(vs)
}

func cmdZRange(_ context.Context, c *Context, args []string) resp.Value {
	return rangeByRank(c, args, false)
}

func cmdZRevRange(_ context.Context, c *Context, args []string) resp.Value {
	return rangeByRank(c, args, true)
}

func rangeByRank(c *Context, args []string, rev bool) resp.Value {
	start, e1 := strconv.Atoi(args[1])
	stop, e2 := strconv.Atoi(args[2])
	if e1 != nil || e2 != nil {
		return resp.Err("ERR value is not an integer or out of range")
	}
	withScores := false
	for _, a := range args[3:] {
		if strings.EqualFold(a, "WITHSCORES") {
			withScores = true
		}
	}
	ms, err := c.db().ZRange(args[0], start, stop, rev)
	if err != nil {
		return errToValue(err)
	}
	return zmembersToResp(ms, withScores)
}

func parseOffsetCount(args []string) (offset, count int, withScores bool, err error) {
	count = -1
	for i := 0; i < len(args); i++ {
		switch strings.ToUpper(args[i]) {
		case "WITHSCORES":
			withScores = true
		case "LIMIT":
			if i+2 >= len(args) {
				return 0, 0, false, resp.ErrMalformed
			}
			offset, err = strconv.Atoi(args[i+1])
			if err != nil {
				return 0, 0, false, err
			}
			count, err = strconv.Atoi(args[i+2])
			if err != nil {
				return 0, 0, false, err
			}
			i += 2
		}
	}
	return offset, count, withScores, nil
}

func cmdZRangeByScore(_ context.Context, c *Context, args []string) resp.Value {
	return rangeByScore(c, args, false)
}

func cmdZRevRangeByScore(_ context.Context, c *Context, args []string) resp.Value {
	return rangeByScore(c, args, true)
}

func rangeByScore(c *Context, args []string, rev bool) resp.Value {
	minArg, maxArg := args[1], args[2]
	if rev {
		minArg, maxArg = args[2], args[1]
	}
	r, err := parseScoreRange(minArg, maxArg)
	if err != nil {
		return resp.Err("ERR min or max is not a float")
	}
	offset, count, withScores, perr := parseOffsetCount(args[3:])
	if perr != nil {
		return resp.Err("ERR syntax error")
	}
	ms, serr := c.db().ZRangeByScore(args[0], r, rev, offset, count)
	if serr != nil {
		return errToValue(serr)
	}
	return zmembersToResp(ms, withScores)
}

func parseLexBound(s string) (value string, excl, unbounded bool, err error) {
	switch {
	case s == "-" || s == "+":
		return "", false, true, nil
	case strings.HasPrefix(s, "["):
		return s[1:], false, false, nil
	case strings.HasPrefix(s, "("):
		return s[1:], true, false, nil
	default:
		return "", false, false, resp.ErrMalformed
	}
}

func parseLexRange(minStr, maxStr string) (store.LexRange, error) {
	minV, minExcl, minUnb, err := parseLexBound(minStr)
	if err != nil {
		return store.LexRange{}, err
	}
	maxV, maxExcl, maxUnb, err := parseLexBound(maxStr)
	if err != nil {
		return store.LexRange{}, err
	}
	return store.LexRange{
		Min: minV, Max: maxV,
		MinExcl: minExcl, MaxExcl: maxExcl,
		MinUnbounded: minUnb, MaxUnbounded: maxUnb,
	}, nil
}

func cmdZRangeByLex(_ context.Context, c *Context, args []string) resp.Value {
	return rangeByLex(c, args, false)
}

func cmdZRevRangeByLex(_ context.Context, c *Context, args []string) resp.Value {
	return rangeByLex(c, args, true)
}

func rangeByLex(c *Context, args []string, rev bool) resp.Value {
	minArg, maxArg := args[1], args[2]
	if rev {
		minArg, maxArg = args[2], args[1]
	}
	r, err := parseLexRange(minArg, maxArg)
	if err != nil {
		return resp.Err("ERR min or max not valid string range item")
	}
	offset, count, _, perr := parseOffsetCount(args[3:])
	if perr != nil {
		return resp.Err("ERR syntax error")
	}
	members, serr := c.db().ZRangeByLex(args[0], r, rev, offset, count)
	if serr != nil {
		return errToValue(serr)
	}
	return bulkStringsArray(members)
}

func cmdZLexCount(_ context.Context, c *Context, args []string) resp.Value {
	r, err := parseLexRange(args[1], args[2])
	if err != nil {
		return resp.Err("ERR min or max not valid string range item")
	}
	members, serr := c.db().ZRangeByLex(args[0], r, false, 0, -1)
	if serr != nil {
		return errToValue(serr)
	}
	return intReply(len(members))
}

func cmdZRemRangeByRank(_ context.Context, c *Context, args []string) resp.Value {
	start, e1 := strconv.Atoi(args[1])
	stop, e2 := strconv.Atoi(args[2])
	if e1 != nil || e2 != nil {
		return resp.Err("ERR value is not an integer or out of range")
	}
	ms, err := c.db().ZRange(args[0], start, stop, false)
	if err != nil {
		return errToValue(err)
	}
	return removeMembers(c, args[0], ms)
}

func cmdZRemRangeByScore(_ context.Context, c *Context, args []string) resp.Value {
	r, err := parseScoreRange(args[1], args[2])
	if err != nil {
		return resp.Err("ERR min or max is not a float")
	}
	ms, serr := c.db().ZRangeByScore(args[0], r, false, 0, -1)
	if serr != nil {
		return errToValue(serr)
	}
	return removeMembers(c, args[0], ms)
}

func cmdZRemRangeByLex(_ context.Context, c *Context, args []string) resp.Value {
	r, err := parseLexRange(args[1], args[2])
	if err != nil {
		return resp.Err("ERR min or max not valid string range item")
	}
	members, serr := c.db().ZRangeByLex(args[0], r, false, 0, -1)
	if serr != nil {
		return errToValue(serr)
	}
	n, rerr := c.db().ZRem(args[0], members)
	if rerr != nil {
		return errToValue(rerr)
	}
	return intReply(n)
}

func removeMembers(c *Context, key string, ms []store.ZMember) resp.Value {
	names := make([]string, len(ms))
	for i, m := range ms {
		names[i] = m.Member
	}
	n, err := c.db().ZRem(key, names)
	if err != nil {
		return errToValue(err)
	}
	return intReply(n)
}

func cmdZPopMin(_ context.Context, c *Context, args []string) resp.Value {
	return popZ(c, args, true)
}

func cmdZPopMax(_ context.Context, c *Context, args []string) resp.Value {
	return popZ(c, args, false)
}

func popZ(c *Context, args []string, min bool) resp.Value {
	count := 1
	if len(args) == 2 {
		n, err := strconv.Atoi(args[1])
		if err != nil || n < 0 {
			return resp.Err("ERR value is out of range, must be positive")
		}
		count = n
	}
	var ms []store.ZMember
	var err error
	if min {
		ms, err = c.db().ZPopMin(args[0], count)
	} else {
		ms, err = c.db().ZPopMax(args[0], count)
	}
	if err != nil {
		return errToValue(err)
	}
	return zmembersToResp(ms, true)
}

func cmdBZPopMin(goctx context.Context, c *Context, args []string) resp.Value {
	return blockingZPop(goctx, c, args, true)
}

func cmdBZPopMax(goctx context.Context, c *Context, args []string) resp.Value {
	return blockingZPop(goctx, c, args, false)
}

func blockingZPop(goctx context.Context, c *Context, args []string, min bool) resp.Value {
	keys := args[:len(args)-1]
	timeout, err := parseTimeout(args[len(args)-1])
	if err != nil {
		return resp.Err("ERR timeout is not a float or out of range")
	}
	return blockUntil(goctx, timeout, func() (resp.Value, bool) {
		for _, k := range keys {
			var ms []store.ZMember
			var perr error
			if min {
				ms, perr = c.db().ZPopMin(k, 1)
			} else {
				ms, perr = c.db().ZPopMax(k, 1)
			}
			if perr != nil || len(ms) == 0 {
				continue
			}
			return resp.Array([]resp.Value{
				resp.BulkString(k),
				resp.BulkString(ms[0].Member),
				resp.BulkString(formatScore(ms[0].Score)),
			}), true
		}
		return resp.Value{}, false
	})
}

func parseAggregateAndWeights(args []string, numKeys int) ([]float64, store.ZAggregate, error) {
	weights := make([]float64, 0, numKeys)
	agg := store.AggregateSum
	i := 0
	for i < len(args) {
		switch strings.ToUpper(args[i]) {
		case "WEIGHTS":
			for j := 0; j < numKeys && i+1+j < len(args); j++ {
				w, err := strconv.ParseFloat(args[i+1+j], 64)
				if err != nil {
					return nil, 0, err
				}
				weights = append(weights, w)
			}
			i += 1 + numKeys
		case "AGGREGATE":
			if i+1 >= len(args) {
				return nil, 0, resp.ErrMalformed
			}
			switch strings.ToUpper(args[i+1]) {
			case "SUM":
				agg = store.AggregateSum
			case "MIN":
				agg = store.AggregateMin
			case "MAX":
				agg = store.AggregateMax
			default:
				return nil, 0, resp.ErrMalformed
			}
			i += 2
		default:
			i++
		}
	}
	return weights, agg, nil
}

func cmdZUnionStore(_ context.Context, c *Context, args []string) resp.Value {
	numKeys, err := strconv.Atoi(args[1])
	if err != nil || numKeys <= 0 || 2+numKeys > len(args) {
		return resp.Err("ERR syntax error")
	}
	keys := args[2 : 2+numKeys]
	weights, agg, werr := parseAggregateAndWeights(args[2+numKeys:], numKeys)
	if werr != nil {
		return resp.Err("ERR syntax error")
	}
	n, serr := c.db().ZUnionStore(args[0], keys, weights, agg)
	if serr != nil {
		return errToValue(serr)
	}
	return intReply(n)
}

func cmdZInterStore(_ context.Context, c *Context, args []string) resp.Value {
	numKeys, err := strconv.Atoi(args[1])
	if err != nil || numKeys <= 0 || 2+numKeys > len(args) {
		return resp.Err("ERR syntax error")
	}
	keys := args[2 : 2+numKeys]
	weights, agg, werr := parseAggregateAndWeights(args[2+numKeys:], numKeys)
	if werr != nil {
		return resp.Err("ERR syntax error")
	}
	n, serr := c.db().ZInterStore(args[0], keys, weights, agg)
	if serr != nil {
		return errToValue(serr)
	}
	return intReply(n)
}

func cmdZDiff(_ context.Context, c *Context, args []string) resp.Value {
	numKeys, err := strconv.Atoi(args[0])
	if err != nil || numKeys <= 0 || 1+numKeys > len(args) {
		return resp.Err("ERR syntax error")
	}
	keys := args[1 : 1+numKeys]
	withScores := len(args) > 1+numKeys && strings.EqualFold(args[1+numKeys], "WITHSCORES")
	ms, serr := c.db().ZDiff(keys)
	if serr != nil {
		return errToValue(serr)
	}
	return zmembersToResp(ms, withScores)
}

func cmdZDiffStore(_ context.Context, c *Context, args []string) resp.Value {
	numKeys, err := strconv.Atoi(args[1])
	if err != nil || numKeys <= 0 || 2+numKeys > len(args) {
		return resp.Err("ERR syntax error")
	}
	keys := args[2 : 2+numKeys]
	n, serr := c.db().ZDiffStore(args[0], keys)
	if serr != nil {
		return errToValue(serr)
	}
	return intReply(n)
}
