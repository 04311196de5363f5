package command

import (
	"context"
	"strconv"
	"strings"

	"github.com/ridgedb/ridgedb/internal/store"
	"github.com/ridgedb/ridgedb/pkg/resp"
)

func registerGeoCommands(t *Table) {
	t.register(&Command{Name: "GEOADD", MinArgs: 4, MaxArgs: -1, Write: true, Handler: cmdGeoAdd})
	t.register(&Command{Name: "GEOPOS", MinArgs: 2, MaxArgs: -1, Handler: cmdGeoPos})
	t.register(&Command{Name: "GEODIST", MinArgs: 3, MaxArgs: 4, Handler: cmdGeoDist})
}

func cmdGeoAdd(_ context.Context, c *Context, args []string) resp.Value {
	rest := args[1:]
	if len(rest)%3 != 0 || len(rest) == 0 {
		return resp.Err("ERR syntax error")
	}
	points := make(map[string][2]float64, len(rest)/3)
	for i := 0; i < len(rest); i += 3 {
		lon, e1 := strconv.ParseFloat(rest[i], 64)
		lat, e2 := strconv.ParseFloat(rest[i+1], 64)
		if e1 != nil || e2 != nil {
			return resp.Err("ERR value is not a valid float")
		}
		points[rest[i+2]] = [2]float64{lon, lat}
	}
	n, err := c.db().GeoAdd(args[0], points)
	if err != nil {
		return errToValue(err)
	}
	return intReply(n)
}

func cmdGeoPos(_ context.Context, c *Context, args []string) resp.Value {
	positions, found, err := c.db().GeoPos(args[0], args[1:])
	if err != nil {
		return errToValue(err)
	}
	vs := make([]resp.Value, len(positions))
	for i, p := range positions {
		if !found[i] {
			vs[i] = resp.NullArray()
			continue
		}
		vs[i] = resp.Array([]resp.Value{
			resp.BulkString(strconv.FormatFloat(p[0], 'f', -1, 64)),
			resp.BulkString(strconv.FormatFloat(p[1], 'f', -1, 64)),
		})
	}
	return resp.Array(vs)
}

func parseGeoUnit(s string) (store.GeoUnit, bool) {
	switch strings.ToLower(s) {
	case "m":
		return store.GeoMeters, true
	case "km":
		return store.GeoKilometers, true
	case "mi":
		return store.GeoMiles, true
	case "ft":
		return store.GeoFeet, true
	default:
		return 0, false
	}
}

func cmdGeoDist(_ context.Context, c *Context, args []string) resp.Value {
	unit := store.GeoMeters
	if len(args) == 4 {
		u, ok := parseGeoUnit(args[3])
		if !ok {
			return resp.Err("ERR unsupported unit provided. please use M, KM, FT, MI")
		}
		unit = u
	}
	d, ok, err := c.db().GeoDist(args[0], args[1], args[2], unit)
	if err != nil {
		return errToValue(err)
	}
	if !ok {
		return resp.NullBulk()
	}
	return resp.BulkString(strconv.FormatFloat(d, 'f', 4, 64))
}
