// Command montage drives the 2D tile-alignment pipeline from the terminal:
// align runs the staged pipeline over a tile spec, runs inspects recorded
// history, and config manages the TOML configuration file.
package main
